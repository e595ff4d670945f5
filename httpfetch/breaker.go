// Package httpfetch wraps an HTTP client with circuit-breaker protection so
// a PSP endpoint that starts failing (a downed JWKS host, a slow payment
// API) doesn't let every LoadPix caller pile up on it.
package httpfetch

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/brpix/pixverify/internal/config"
)

// ErrCircuitOpen is returned when the breaker is open and a call is
// rejected without ever reaching the network.
var ErrCircuitOpen = errors.New("httpfetch: circuit breaker open")

// BreakingClient wraps an *http.Client (or anything satisfying the same
// Do(*http.Request) interface) with a single gobreaker.CircuitBreaker.
// It implements jws.HTTPClient.
type BreakingClient struct {
	next    Doer
	breaker *gobreaker.CircuitBreaker
}

// Doer is the narrow interface BreakingClient wraps; *http.Client satisfies
// it directly.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewBreakingClient wraps next with a circuit breaker configured from cfg.
// If cfg.Enabled is false, the breaker is bypassed entirely and next.Do is
// called directly.
func NewBreakingClient(next Doer, cfg config.BreakerConfig) *BreakingClient {
	if !cfg.Enabled {
		return &BreakingClient{next: next}
	}
	settings := gobreaker.Settings{
		Name:        "pixverify-http",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval.Duration,
		Timeout:     cfg.Timeout.Duration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	}
	return &BreakingClient{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Do executes req, routed through the circuit breaker when one is
// configured. A 5xx response counts as a breaker failure; any other status
// counts as success (client errors reflect the PSP's input validation, not
// its health).
func (c *BreakingClient) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.next.Do(req)
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.next.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, errFailedUpstream(resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

// State reports the breaker's current state ("closed", "open", "half-open"),
// or "disabled" if no breaker is configured.
func (c *BreakingClient) State() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

type upstreamStatusError int

func (e upstreamStatusError) Error() string {
	return "httpfetch: upstream returned a server error"
}

func errFailedUpstream(status int) error {
	return upstreamStatusError(status)
}
