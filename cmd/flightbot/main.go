package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"

	fbconfig "github.com/voicetyped/flightbot/config"
	"github.com/voicetyped/flightbot/internal/booking/bookingv1"
	bookinghandler "github.com/voicetyped/flightbot/internal/booking/handler"
	"github.com/voicetyped/flightbot/internal/connectutil"
	"github.com/voicetyped/flightbot/internal/metrics"
	"github.com/voicetyped/flightbot/internal/store"
	"github.com/voicetyped/flightbot/pkg/dialog"
	"github.com/voicetyped/flightbot/pkg/events"
	"github.com/voicetyped/flightbot/pkg/ledger"
	ledgerapi "github.com/voicetyped/flightbot/pkg/ledger/api"
	"github.com/voicetyped/flightbot/pkg/telemetry"
	"github.com/voicetyped/flightbot/pkg/webhook"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[fbconfig.ServiceConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("flightbot"),
		frame.WithRegisterServerOauth2Client(),
		frame.WithDatastore(),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	authenticator := srv.SecurityManager().GetAuthenticator(ctx)

	// --- Telemetry ---
	telemetryLogger, flush, err := telemetry.NewLogger(ctx, telemetry.LoggerConfig{
		ConnectionString: cfg.AppInsightsKey,
		ServiceName:      "flightbot",
		InstanceID:       cfg.MicrosoftAppID,
	})
	if err != nil {
		log.Fatalf("setting up telemetry: %v", err)
	}
	defer func() { _ = flush(context.Background()) }()
	reporter := telemetry.NewReporter(telemetryLogger)

	pub := events.NewPublisher(srv.QueueManager(), "flightbot", eventRef)

	// --- Prompt catalog ---
	loader := dialog.NewLoader(cfg.PromptCatalog)
	if _, err := loader.Load(); err != nil {
		log.Printf("warning: loading prompt catalog: %v", err)
	}
	if cfg.PromptCatalogWatch {
		go func() {
			if err := loader.WatchAndReload(ctx.Done()); err != nil {
				slog.Error("catalog watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// --- Booking flow ---
	engine := dialog.NewEngine(
		dialog.NewWaterfall(loader.Current, nil),
		reporter,
		pub,
		dialog.WithObserver(metrics.Recorder{}),
		dialog.WithHost("rpc"),
	)

	sessions, err := store.New(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatalf("opening session store: %v", err)
	}
	if c, ok := sessions.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	bookingHdlr := bookinghandler.NewBookingHandler(engine, sessions, pool, cfg.SessionTTL)

	// --- Ledger ---
	repo := ledger.NewRepository(
		srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"),
	)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("migrating ledger: %v", err)
	}
	ledgerSubscriber := &ledger.Subscriber{Repo: repo}

	// --- Outcome webhooks ---
	endpoints, err := cfg.WebhookEndpoints()
	if err != nil {
		log.Fatalf("parsing webhook endpoints: %v", err)
	}
	whSubscriber := &webhook.Subscriber{
		Endpoints: endpoints,
		Deliverer: webhook.NewDeliverer(cfg.DelivererConfig(), metrics.WebhookResult),
		Pool:      pool,
	}

	// --- HTTP Mux ---
	mux := http.NewServeMux()

	opts, err := connectutil.AuthenticatedOptions(ctx, authenticator)
	if err != nil {
		log.Fatalf("setting up auth interceptors: %v", err)
	}
	path, h := bookingv1.NewBookingServiceHandler(bookingHdlr, opts...)
	mux.Handle(path, h)

	restMux := http.NewServeMux()
	ledgerapi.NewHandler(repo).RegisterRoutes(restMux)
	mux.Handle("/api/", connectutil.AuthenticatedHTTPMiddleware(restMux, authenticator))

	mux.Handle("/metrics", metrics.Handler())

	bookingHdlr.StartReaper(ctx)

	srv.Init(ctx,
		frame.WithRegisterSubscriber(eventRef+".ledger", eventURL, ledgerSubscriber),
		frame.WithRegisterSubscriber(eventRef+".webhooks", eventURL, whSubscriber),
		frame.WithHTTPHandler(connectutil.H2CHandler(mux)),
	)

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
