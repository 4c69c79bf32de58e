// Package webhook notifies external systems of booking outcomes. Each
// configured endpoint receives signed JSON envelopes for the event types it
// subscribes to.
package webhook

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/voicetyped/flightbot/pkg/events"
)

// DefaultEvents are delivered when an endpoint names none.
var DefaultEvents = []events.EventType{events.BookingConfirmed}

// Endpoint is one notification target.
type Endpoint struct {
	Name   string
	URL    string
	Secret string
	Events []events.EventType
}

// Wants reports whether the endpoint subscribes to et.
func (e Endpoint) Wants(et events.EventType) bool {
	return slices.Contains(e.Events, et)
}

// ParseEndpoints reads a comma-separated list of URLs. Each entry may carry
// its own event filter after a '#', joined by '+', as in
// "https://a.example/hook#booking.confirmed+booking.rejected". Entries without
// a filter get defaults.
func ParseEndpoints(list, secret string, defaults []events.EventType) ([]Endpoint, error) {
	if len(defaults) == 0 {
		defaults = DefaultEvents
	}
	var out []Endpoint
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		target, filter, _ := strings.Cut(raw, "#")
		u, err := url.Parse(target)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("webhook endpoint %q: not an absolute URL", target)
		}

		ep := Endpoint{Name: u.Host, URL: target, Secret: secret, Events: defaults}
		if filter != "" {
			ep.Events = ParseEventTypes(strings.ReplaceAll(filter, "+", ","))
		}
		out = append(out, ep)
	}
	return out, nil
}

// ParseEventTypes splits a comma-separated list of event type names.
func ParseEventTypes(list string) []events.EventType {
	var out []events.EventType
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, events.EventType(name))
		}
	}
	return out
}
