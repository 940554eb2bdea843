// Package solarlog talks to a solar-log monitoring gateway over HTTP. The
// gateway has to be asked to prepare its CSV export before the export can be
// downloaded.
package solarlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
)

// Gateway defines the interface for fetching the CSV export from a solar-log.
type Gateway interface {
	// Prepare asks the gateway to rebuild its CSV export and waits until it
	// is ready or the prepare timeout passes.
	Prepare(ctx context.Context) error

	// Download returns the raw CSV export.
	Download(ctx context.Context) ([]byte, error)
}

// Kind is the solar-log firmware generation, which decides how the export is
// prepared.
type Kind string

const (
	// KindNew gateways build the export asynchronously and are polled for
	// completion.
	KindNew Kind = "new"
	// KindOld gateways build the export when it is requested.
	KindOld Kind = "old"
)

var (
	// ErrUnknownKind is returned for a solar-log type other than new or old.
	ErrUnknownKind = errors.New("solar-log type can only be new or old")
	// ErrPrepareTimeout is returned when the gateway never reports the export
	// as complete.
	ErrPrepareTimeout = errors.New("timed out waiting for gateway to prepare export")
)

// ParseKind returns the Kind for s, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindNew, KindOld:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// TransportError is returned when the gateway cannot be reached or answers
// with a non-200 status. The poll is abandoned and retried on the next run.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Configured sets up the gateway client from flags.
// It uses lflag to register command-line flags for configuration.
func Configured() *Client {
	c := &Client{}

	addr := lflag.String("solarlog-addr", "", "IP address or base URL of the solar-log gateway")
	kind := lflag.String("solarlog-type", string(KindNew), "Solar-log generation (new or old)")
	timeout := lflag.Duration("solarlog-timeout", 30*time.Second, "Timeout for each request to the gateway")
	interval := lflag.Duration("prepare-interval", 10*time.Second, "How often to check whether the export is ready")
	prepareTimeout := lflag.Duration("prepare-timeout", 500*time.Second, "How long to wait for the export to be ready")

	lflag.Do(func() {
		*c = *NewClient(*addr, Kind(*kind), *timeout)
		c.prepareInterval = *interval
		c.prepareAttempts = attempts(*prepareTimeout, *interval)
	})

	return c
}

func attempts(timeout, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	n := int((timeout + interval - 1) / interval)
	if n < 1 {
		n = 1
	}
	return n
}
