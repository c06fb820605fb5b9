// Package throttle provides an EmbeddingService decorator that serialises
// provider calls and enforces a minimum pause between them.
package throttle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultMinInterval is the default pause between consecutive calls.
const DefaultMinInterval = 100 * time.Millisecond

// Config holds throttling configuration.
type Config struct {
	// MinInterval is the pause between the end of one provider call and
	// the start of the next, retries included.
	MinInterval time.Duration

	// MaxRetries is how many times a rate-limited or 5xx call is retried.
	// Zero disables retries.
	MaxRetries int

	// RetryBackoff is the base delay for retries, doubled per attempt
	// and capped at MaxRetryBackoff.
	RetryBackoff time.Duration
}

// MaxRetryBackoff caps the exponential retry delay.
const MaxRetryBackoff = 5 * time.Second

// EmbeddingService wraps another EmbeddingService.
// At most one call is in flight at a time.
type EmbeddingService struct {
	next    driven.EmbeddingService
	cfg     Config
	callMu  sync.Mutex
	limit   rate.Limit
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// New wraps next with call serialisation and pacing.
func New(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &EmbeddingService{
		next:    next,
		cfg:     cfg,
		limit:   limit,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepContext,
	}
}

// restartPacing empties the bucket at now, so the next token arrives
// MinInterval after the call that just returned. Caller holds callMu.
func (s *EmbeddingService) restartPacing(now time.Time) {
	s.limiter = rate.NewLimiter(s.limit, 1)
	s.limiter.AllowN(now, 1)
}

// Embed waits for its turn and for the pacing interval, then delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) (*domain.Embedding, error) {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		emb, err := s.next.Embed(ctx, text)
		s.restartPacing(time.Now())
		if err == nil || attempt >= s.cfg.MaxRetries || !retryable(err) {
			return emb, err
		}

		delay := retryDelay(s.cfg.RetryBackoff, attempt)
		logger.Warn("embedding call failed (%v), retrying in %s", err, delay)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// retryable reports whether err is a rate limit or server-side provider failure.
func retryable(err error) bool {
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode >= 500
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d > MaxRetryBackoff || d <= 0 {
		d = MaxRetryBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping delegates without throttling.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}

// Unwrap returns the wrapped service.
func (s *EmbeddingService) Unwrap() driven.EmbeddingService {
	return s.next
}
