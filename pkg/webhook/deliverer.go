package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/voicetyped/flightbot/pkg/events"
)

// Config tunes delivery.
type Config struct {
	MaxAttempts      int
	Timeout          time.Duration
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	FailureThreshold uint32
	ResetTimeout     time.Duration
	// AllowPrivate skips the reserved-address check. Tests only.
	AllowPrivate bool
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = time.Second
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = 5 * time.Minute
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = time.Minute
	}
	return c
}

// Result describes the end of one delivery.
type Result struct {
	Endpoint string
	EventID  string
	Attempts int
	Status   int
	Err      error
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusRequestTimeout || se.Code == http.StatusTooManyRequests
	}
	return true
}

const maxBreakers = 10000

// Deliverer posts envelopes to endpoints with retries and a circuit breaker
// per endpoint.
type Deliverer struct {
	client   *http.Client
	cfg      Config
	onResult func(Result)

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
}

// NewDeliverer creates a deliverer. onResult, when set, sees every finished delivery.
func NewDeliverer(cfg Config, onResult func(Result)) *Deliverer {
	cfg = cfg.withDefaults()
	return &Deliverer{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:      cfg,
		onResult: onResult,
		breakers: make(map[string]*gobreaker.CircuitBreaker[int]),
	}
}

func (d *Deliverer) breaker(ep Endpoint) *gobreaker.CircuitBreaker[int] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cb, ok := d.breakers[ep.URL]; ok {
		return cb
	}
	if len(d.breakers) >= maxBreakers {
		for k := range d.breakers {
			delete(d.breakers, k)
			break
		}
	}

	threshold := d.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:    ep.Name,
		Timeout: d.cfg.ResetTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("webhook circuit state changed",
				slog.String("endpoint", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	d.breakers[ep.URL] = cb
	return cb
}

// BreakerState returns the circuit state for an endpoint.
func (d *Deliverer) BreakerState(ep Endpoint) gobreaker.State {
	return d.breaker(ep).State()
}

// Deliver posts env to ep, retrying transient failures with exponential
// backoff. It blocks until the delivery succeeds, gives up or ctx ends.
func (d *Deliverer) Deliver(ctx context.Context, ep Endpoint, env events.Envelope) Result {
	res := Result{Endpoint: ep.Name, EventID: env.ID}
	defer func() {
		if d.onResult != nil {
			d.onResult(res)
		}
	}()

	if err := CheckURL(ctx, ep.URL, d.cfg.AllowPrivate); err != nil {
		res.Err = err
		return res
	}

	body, err := json.Marshal(env)
	if err != nil {
		res.Err = fmt.Errorf("marshal envelope: %w", err)
		return res
	}

	cb := d.breaker(ep)
	backoff := d.cfg.BackoffInitial
	for res.Attempts < d.cfg.MaxAttempts {
		res.Attempts++
		res.Status, res.Err = cb.Execute(func() (int, error) {
			return d.post(ctx, ep, env, body)
		})
		if res.Err == nil || !retryable(res.Err) || res.Attempts == d.cfg.MaxAttempts {
			return res
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Err = errors.Join(res.Err, ctx.Err())
			return res
		case <-timer.C:
		}
		backoff = min(backoff*2, d.cfg.BackoffMax)
	}
	return res
}

func (d *Deliverer) post(ctx context.Context, ep Endpoint, env events.Envelope, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, string(env.Type))
	req.Header.Set(DeliveryHeader, env.ID)
	if ep.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(ep.Secret, body, time.Now()))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// Drain for connection reuse.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &StatusError{Code: resp.StatusCode}
	}
	return resp.StatusCode, nil
}
