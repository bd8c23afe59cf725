// Package revalidate tells the frontend to drop its cached rendering of blog pages.
//
// Calls are best effort. Failures are logged and counted, never retried. When
// BreakerFailures is set, a circuit breaker skips calls for a while after the
// frontend failed that many times in a row.
package revalidate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/metrics"
)

const (
	endpointPath = "/api/revalidate"
	breakerName  = "revalidate"

	defaultTimeout         = 5 * time.Second
	defaultPath            = "/blog"
	defaultBreakerCooldown = 30 * time.Second
)

// ErrUnexpectedStatus is returned when the frontend answers with a non 2xx status.
var ErrUnexpectedStatus = errors.New("revalidation endpoint returned unexpected status")

// Payload is the JSON body posted to the frontend.
type Payload struct {
	Path string `json:"path"`
	Slug string `json:"slug"`
}

// Notifier posts revalidation requests to the frontend.
type Notifier struct {
	endpoint string
	secret   string
	path     string
	timeout  time.Duration
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[struct{}] // nil when disabled
	wg       sync.WaitGroup
}

// New creates a Notifier from the Revalidate config.
func New(cfg config.Revalidate) *Notifier {
	n := &Notifier{
		endpoint: strings.TrimRight(cfg.FrontendURL, "/") + endpointPath,
		secret:   cfg.Secret,
		path:     cfg.Path,
		timeout:  cfg.Timeout,
	}

	if n.path == "" {
		n.path = defaultPath
	}

	if n.timeout <= 0 {
		n.timeout = defaultTimeout
	}

	n.client = &http.Client{Timeout: n.timeout}

	failures := cfg.BreakerFailures
	if failures == 0 {
		return n
	}

	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	n.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("revalidation circuit breaker changed state")

			metrics.RevalidateBreakerState.Set(stateToFloat(to))
		},
	})

	return n
}

// Revalidate sends the notification in the background. The outcome is only logged.
func (n *Notifier) Revalidate(slug, language string) {
	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.Send(ctx, slug, language); err != nil {
			log.Warn().
				Err(err).
				Str("slug", slug).
				Str("language", language).
				Msg("frontend revalidation failed")

			return
		}

		log.Debug().Str("slug", slug).Str("language", language).Msg("frontend revalidated")
	}()
}

// Wait blocks until every background notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Send posts one revalidation request and reports its outcome.
func (n *Notifier) Send(ctx context.Context, slug, _ string) error {
	var err error

	if n.cb == nil {
		err = n.post(ctx, slug)
	} else {
		_, err = n.cb.Execute(func() (struct{}, error) {
			return struct{}{}, n.post(ctx, slug)
		})
	}

	switch {
	case err == nil:
		metrics.Revalidations.WithLabelValues(metrics.ResultSuccess).Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.Revalidations.WithLabelValues(metrics.ResultRejected).Inc()
	default:
		metrics.Revalidations.WithLabelValues(metrics.ResultFailure).Inc()
	}

	return err
}

func (n *Notifier) post(ctx context.Context, slug string) error {
	body, err := json.Marshal(Payload{Path: n.path, Slug: slug})
	if err != nil {
		return fmt.Errorf("failed to marshal revalidation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create revalidation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if n.secret != "" {
		req.Header.Set("Authorization", "Bearer "+n.secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send revalidation request: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2 //nolint:mnd
	default:
		return -1
	}
}

// Nop discards revalidation requests. It is used when revalidation is disabled.
type Nop struct{}

// Revalidate implements the notifier contract and does nothing.
func (Nop) Revalidate(string, string) {}
