package telemetry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultIngestionEndpoint is the OTLP/HTTP collector used when a connection
// string names no endpoint.
const DefaultIngestionEndpoint = "http://localhost:4318"

// ErrEmptyConnectionString is returned when there is nothing to parse.
var ErrEmptyConnectionString = errors.New("telemetry: empty connection string")

// ConnectionString is the parsed form of an
// "InstrumentationKey=...;IngestionEndpoint=..." setting.
type ConnectionString struct {
	InstrumentationKey string
	IngestionEndpoint  string
	LiveEndpoint       string
}

// ParseConnectionString parses semicolon-separated Key=Value pairs. Keys are
// case-insensitive and unknown keys are ignored. A value without any "=" is
// taken as a bare instrumentation key.
func ParseConnectionString(s string) (ConnectionString, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ConnectionString{}, ErrEmptyConnectionString
	}

	cs := ConnectionString{IngestionEndpoint: DefaultIngestionEndpoint}
	if !strings.Contains(s, "=") {
		cs.InstrumentationKey = s
		return cs, nil
	}

	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return ConnectionString{}, fmt.Errorf("telemetry: malformed pair %q", pair)
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "instrumentationkey":
			cs.InstrumentationKey = value
		case "ingestionendpoint":
			cs.IngestionEndpoint = value
		case "liveendpoint":
			cs.LiveEndpoint = value
		}
	}

	u, err := url.Parse(cs.IngestionEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ConnectionString{}, fmt.Errorf("telemetry: invalid ingestion endpoint %q", cs.IngestionEndpoint)
	}
	return cs, nil
}

// LogsURL is the OTLP/HTTP logs path under the ingestion endpoint.
func (c ConnectionString) LogsURL() string {
	return strings.TrimRight(c.IngestionEndpoint, "/") + "/v1/logs"
}
