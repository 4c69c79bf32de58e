package webhook

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"

	"github.com/voicetyped/flightbot/pkg/events"
)

// Subscriber implements queue.SubscribeWorker and fans booking events out to
// the endpoints that want them.
type Subscriber struct {
	Endpoints []Endpoint
	Deliverer *Deliverer
	Pool      workerpool.WorkerPool
}

// Handle is called by frame's pub/sub for each event message.
func (s *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		util.Log(ctx).WithError(err).Error("webhook subscriber: unmarshal envelope")
		return err
	}

	// Deliveries and their retries outlive the message ack.
	deliverCtx := context.WithoutCancel(ctx)
	for _, ep := range s.Endpoints {
		if !ep.Wants(env.Type) {
			continue
		}
		job := func() {
			res := s.Deliverer.Deliver(deliverCtx, ep, env)
			if res.Err != nil {
				util.Log(deliverCtx).WithError(res.Err).Error("webhook delivery failed")
			}
		}
		if s.Pool == nil {
			go job()
			continue
		}
		if err := s.Pool.Submit(ctx, job); err != nil {
			slog.WarnContext(ctx, "webhook pool full", slog.String("endpoint", ep.Name))
		}
	}
	return nil
}
