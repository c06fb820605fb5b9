package throttle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockEmbedder records call timing and concurrency.
type mockEmbedder struct {
	mu       sync.Mutex
	delay    time.Duration
	starts   []time.Time
	calls    []time.Time
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	errs     []error
	closed   bool
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (*domain.Embedding, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	if n > m.maxSeen.Load() {
		m.maxSeen.Store(n)
	}
	m.mu.Lock()
	m.starts = append(m.starts, time.Now())
	delay := m.delay
	m.mu.Unlock()
	if delay == 0 {
		delay = 2 * time.Millisecond
	}
	time.Sleep(delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, time.Now())
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &domain.Embedding{Vector: []float64{1}, Model: "mock", TokensUsed: len(text)}, nil
}

func (m *mockEmbedder) ModelName() string             { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { m.closed = true; return nil }

func TestEmbed_EnforcesMinInterval(t *testing.T) {
	mock := &mockEmbedder{}
	svc := New(mock, Config{MinInterval: 30 * time.Millisecond})

	for i := 0; i < 3; i++ {
		_, err := svc.Embed(context.Background(), "text")
		require.NoError(t, err)
	}

	require.Len(t, mock.calls, 3)
	for i := 1; i < len(mock.calls); i++ {
		gap := mock.calls[i].Sub(mock.calls[i-1])
		assert.GreaterOrEqual(t, gap, 25*time.Millisecond, "gap %d too small", i)
	}
}

func TestEmbed_PausesAfterSlowCall(t *testing.T) {
	mock := &mockEmbedder{delay: 40 * time.Millisecond}
	svc := New(mock, Config{MinInterval: 30 * time.Millisecond})

	for i := 0; i < 3; i++ {
		_, err := svc.Embed(context.Background(), "text")
		require.NoError(t, err)
	}

	require.Len(t, mock.starts, 3)
	for i := 1; i < len(mock.starts); i++ {
		pause := mock.starts[i].Sub(mock.calls[i-1])
		assert.GreaterOrEqual(t, pause, 25*time.Millisecond, "pause before call %d too small", i)
	}
}

func TestEmbed_OneCallAtATime(t *testing.T) {
	mock := &mockEmbedder{}
	svc := New(mock, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Embed(context.Background(), "x")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), mock.maxSeen.Load())
	assert.Len(t, mock.calls, 8)
}

func TestEmbed_ContextCancelledWhileWaiting(t *testing.T) {
	mock := &mockEmbedder{}
	svc := New(mock, Config{MinInterval: time.Hour})

	_, err := svc.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = svc.Embed(ctx, "second")
	assert.Error(t, err)
	assert.Len(t, mock.calls, 1)
}

func TestEmbed_PassesThroughErrors(t *testing.T) {
	providerErr := &domain.ProviderError{Provider: "mock", StatusCode: 401, Message: "bad key"}
	mock := &mockEmbedder{errs: []error{providerErr}}
	svc := New(mock, Config{MaxRetries: 3})

	_, err := svc.Embed(context.Background(), "x")

	assert.ErrorIs(t, err, providerErr)
	assert.Len(t, mock.calls, 1, "401 is not retried")
}

func TestEmbed_RetriesRateLimit(t *testing.T) {
	rateLimited := &domain.ProviderError{Provider: "mock", StatusCode: 429, Message: "slow down"}
	mock := &mockEmbedder{errs: []error{rateLimited, rateLimited}}
	svc := New(mock, Config{MaxRetries: 2, RetryBackoff: time.Millisecond})

	var slept []time.Duration
	svc.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	emb, err := svc.Embed(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "mock", emb.Model)
	assert.Len(t, mock.calls, 3)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, slept)
}

func TestEmbed_RetriesExhausted(t *testing.T) {
	serverErr := &domain.ProviderError{Provider: "mock", StatusCode: 503}
	mock := &mockEmbedder{errs: []error{serverErr, serverErr}}
	svc := New(mock, Config{MaxRetries: 1})
	svc.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := svc.Embed(context.Background(), "x")

	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Len(t, mock.calls, 2)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&domain.ProviderError{StatusCode: 429}))
	assert.True(t, retryable(&domain.ProviderError{StatusCode: 500}))
	assert.False(t, retryable(&domain.ProviderError{StatusCode: 400}))
	assert.False(t, retryable(&domain.ProviderError{}))
	assert.False(t, retryable(errors.New("plain")))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(200*time.Millisecond, 0))
	assert.Equal(t, 800*time.Millisecond, retryDelay(200*time.Millisecond, 2))
	assert.Equal(t, MaxRetryBackoff, retryDelay(200*time.Millisecond, 10))
}

func TestDelegation(t *testing.T) {
	mock := &mockEmbedder{}
	svc := New(mock, Config{})

	assert.Equal(t, "mock", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.Same(t, mock, svc.Unwrap())
	assert.NoError(t, svc.Close())
	assert.True(t, mock.closed)
}
