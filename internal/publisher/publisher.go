// Package publisher runs the scheduled publication sweep.
//
// Every interval the publisher asks the store for due posts, flips each of them to
// published and asks the notifier to revalidate the frontend. The store query is
// re-run on every sweep and the update only matches posts that are still due, so
// overlapping sweeps (another instance, a manual trigger) never publish a post twice.
package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/metrics"
)

// DefaultInterval is the sweep cadence used when none is configured.
const DefaultInterval = time.Minute

// Store is the persistence the sweep needs.
type Store interface {
	// FindDue returns every unpublished post whose ScheduledAt is not after now.
	FindDue(ctx context.Context, now time.Time) ([]models.Post, error)
	// MarkPublished publishes the post if it is still due and reports whether it did.
	MarkPublished(ctx context.Context, id uint64, now time.Time) (bool, error)
}

// Notifier is told about every post the sweep published. It must not block.
type Notifier interface {
	Revalidate(slug, language string)
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// Publisher owns the periodic sweep.
type Publisher struct {
	store    Store
	notifier Notifier
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Publisher. A non positive interval falls back to DefaultInterval.
func New(store Store, notifier Notifier, interval time.Duration, opts ...Option) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}

	p := &Publisher{
		store:    store,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// String implements fmt.Stringer, suture uses it in its log events.
func (p *Publisher) String() string {
	return "publisher"
}

// Sweep publishes every due post once and returns how many posts it published.
// Only a failing due query is returned as error; per post failures are logged and skipped,
// the post stays due and is picked up again by the next sweep.
func (p *Publisher) Sweep(ctx context.Context) (int, error) {
	now := p.now().UTC()

	posts, err := p.store.FindDue(ctx, now)
	if err != nil {
		metrics.PublisherErrors.WithLabelValues("query").Inc()

		return 0, fmt.Errorf("failed to query due posts: %w", err)
	}

	published := 0

	for i := range posts {
		post := &posts[i]

		ok, errMark := p.store.MarkPublished(ctx, post.ID, now)
		if errMark != nil {
			metrics.PublisherErrors.WithLabelValues("update").Inc()
			log.Error().
				Err(errMark).
				Uint64("post_id", post.ID).
				Str("slug", post.Slug).
				Str("language", post.Language).
				Msg("failed to publish scheduled post")

			continue
		}

		if !ok {
			// published or rescheduled in the meantime
			log.Debug().Uint64("post_id", post.ID).Msg("scheduled post no longer due")

			continue
		}

		published++

		metrics.PostsPublished.Inc()
		log.Info().
			Uint64("post_id", post.ID).
			Str("slug", post.Slug).
			Str("language", post.Language).
			Msg("published scheduled post")

		p.notify(post)
	}

	metrics.PublisherSweeps.Inc()

	return published, nil
}

func (p *Publisher) notify(post *models.Post) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Interface("panic", r).
				Str("slug", post.Slug).
				Str("language", post.Language).
				Msg("revalidation notifier panicked")
		}
	}()

	p.notifier.Revalidate(post.Slug, post.Language)
}

// sweepOnce runs one sweep and never lets a failure escape the loop.
func (p *Publisher) sweepOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PublisherErrors.WithLabelValues("panic").Inc()
			log.Error().Interface("panic", r).Msg("publication sweep panicked")
		}
	}()

	n, err := p.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("publication sweep failed")

		return
	}

	if n > 0 {
		log.Info().Int("published", n).Msg("publication sweep finished")
	}
}

// Serve sweeps once and then every interval until ctx is cancelled.
// A sweep that is running when ctx is cancelled is finished first.
// Serve implements suture.Service.
func (p *Publisher) Serve(ctx context.Context) error {
	log.Info().Dur("interval", p.interval).Msg("publisher started")

	sweepCtx := context.WithoutCancel(ctx)

	p.sweepOnce(sweepCtx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("publisher stopped")

			return ctx.Err()
		case <-ticker.C:
			p.sweepOnce(sweepCtx)
		}
	}
}

// Start runs Serve in the background. Calling Start on a running publisher does nothing.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)

		_ = p.Serve(ctx)
	}()
}

// Stop ends the background loop and waits for an in-flight sweep to finish.
func (p *Publisher) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}
