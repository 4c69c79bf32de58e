package main

import (
	"context"
	"log"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"go.temporal.io/sdk/worker"

	fbconfig "github.com/voicetyped/flightbot/config"
	"github.com/voicetyped/flightbot/internal/metrics"
	"github.com/voicetyped/flightbot/internal/workflow"
	"github.com/voicetyped/flightbot/pkg/events"
	"github.com/voicetyped/flightbot/pkg/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[fbconfig.WorkerConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if !cfg.TemporalEnabled() {
		log.Fatalf("TEMPORAL_HOST_PORT is required")
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("flightbot-worker"),
		frame.WithRegisterPublisher(eventRef, eventURL),
	)
	defer srv.Stop(ctx)

	telemetryLogger, flush, err := telemetry.NewLogger(ctx, telemetry.LoggerConfig{
		ConnectionString: cfg.AppInsightsKey,
		ServiceName:      "flightbot-worker",
		InstanceID:       cfg.MicrosoftAppID,
	})
	if err != nil {
		log.Fatalf("setting up telemetry: %v", err)
	}
	defer func() { _ = flush(context.Background()) }()

	tc, err := workflow.Dial(cfg.TemporalHostPort, cfg.TemporalNamespace)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.TemporalTaskQueue, worker.Options{})
	workflow.Register(w, &workflow.Activities{
		Reporter:  telemetry.NewReporter(telemetryLogger),
		Publisher: events.NewPublisher(srv.QueueManager(), "flightbot-worker", eventRef),
		Observer:  metrics.Recorder{},
	})

	srv.Init(ctx, frame.WithHTTPHandler(metrics.Handler()))

	go func() {
		if err := srv.Run(ctx, ""); err != nil {
			log.Printf("service exited: %v", err)
		}
	}()

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}
