// Command console runs a booking conversation on stdin and stdout. By default
// the flow runs in process; -server talks to a running flightbot service and
// -temporal drives a booking workflow.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/xid"

	"github.com/voicetyped/flightbot/internal/booking/bookingv1"
	"github.com/voicetyped/flightbot/internal/connectutil"
	"github.com/voicetyped/flightbot/internal/workflow"
	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/dialog"
	"github.com/voicetyped/flightbot/pkg/telemetry"
)

func main() {
	var (
		details   booking.Details
		catalog   = flag.String("catalog", os.Getenv("PROMPT_CATALOG"), "prompt catalog YAML file")
		server    = flag.String("server", "", "flightbot base URL; runs the flow remotely")
		temporal  = flag.String("temporal", "", "Temporal host:port; runs the flow as a workflow")
		namespace = flag.String("namespace", "default", "Temporal namespace")
		taskQueue = flag.String("task-queue", workflow.DefaultTaskQueue, "Temporal task queue")
	)
	flag.StringVar(&details.Origin, "origin", "", "departure city")
	flag.StringVar(&details.Destination, "destination", "", "arrival city")
	flag.StringVar(&details.StartDate, "start-date", "", "departure date")
	flag.StringVar(&details.EndDate, "end-date", "", "return date")
	flag.StringVar(&details.Budget, "budget", "", "budget")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case *server != "":
		client := bookingv1.NewBookingServiceClient(http.DefaultClient, *server, connectutil.DefaultClientOptions()...)
		_, err = converse(ctx, &rpcRemote{client: client}, details, os.Stdin, os.Stdout)

	case *temporal != "":
		tc, dialErr := workflow.Dial(*temporal, *namespace)
		if dialErr != nil {
			log.Fatal(dialErr)
		}
		defer tc.Close()
		r := &workflowRemote{client: workflow.NewClient(tc, *taskQueue, 0), sessionID: xid.New().String()}
		_, err = converse(ctx, r, details, os.Stdin, os.Stdout)

	default:
		err = runLocal(ctx, *catalog, details, os.Stdin, os.Stdout)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// runLocal hosts the flow in process. Telemetry goes to the sink named by
// APPINSIGHTS_INSTRUMENTATION_KEY, or nowhere.
func runLocal(ctx context.Context, catalogPath string, details booking.Details, in io.Reader, out io.Writer) error {
	loader := dialog.NewLoader(catalogPath)
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	logger, flush, err := telemetry.NewLogger(ctx, telemetry.LoggerConfig{
		ConnectionString: os.Getenv("APPINSIGHTS_INSTRUMENTATION_KEY"),
		ServiceName:      "flightbot-console",
	})
	if err != nil {
		return err
	}
	defer func() { _ = flush(context.Background()) }()

	engine := dialog.NewEngine(
		dialog.NewWaterfall(loader.Current, nil),
		telemetry.NewReporter(logger),
		nil,
		dialog.WithHost("console"),
	)

	result, err := engine.RunDialog(ctx, dialog.NewSession(xid.New().String()), details, readLines(in), sayTo(out))
	if err != nil {
		return err
	}
	if result != nil {
		fmt.Fprintf(out, "\nBooked: %s -> %s, %s to %s, budget %s\n",
			result.Origin, result.Destination, result.StartDate, result.EndDate, result.Budget)
	}
	return nil
}

func readLines(in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func sayTo(out io.Writer) dialog.SayFunc {
	return func(text string) error {
		_, err := fmt.Fprintf(out, "\n%s\n> ", text)
		return err
	}
}
