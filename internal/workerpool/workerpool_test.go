package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentloom/storyforge/internal/platform/apperr"
	"github.com/contentloom/storyforge/internal/platform/logger"
)

func testPool(t *testing.T) *Pool {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return New(nil, log, Config{RetryMaxAttempts: 2, RetryBaseBackoff: time.Millisecond}.withDefaults())
}

func TestComputeBackoffWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 10; attempt++ {
		ceiling := base << uint(attempt-1)
		for i := 0; i < 20; i++ {
			got := computeBackoff(base, attempt)
			assert.GreaterOrEqual(t, got, time.Duration(0))
			assert.LessOrEqual(t, got, ceiling)
		}
	}
}

func TestComputeBackoffClampsAttemptBelowOne(t *testing.T) {
	base := 50 * time.Millisecond
	got := computeBackoff(base, 0)
	assert.LessOrEqual(t, got, base)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseBackoff)
}

func TestConfigWithDefaultsPreservesSetValues(t *testing.T) {
	cfg := Config{Concurrency: 8, PollInterval: time.Second, RetryMaxAttempts: 3, RetryBaseBackoff: time.Millisecond}.withDefaults()
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, time.Millisecond, cfg.RetryBaseBackoff)
}

// A StoreTransient error must be retried (true) rather than swallowed as a
// fatal logic failure, since the store-error classifier now actually
// produces this kind for lock timeouts/deadlocks/serialization failures.
func TestHandleStepErrorRetriesStoreTransient(t *testing.T) {
	p := testPool(t)
	attempts := map[string]int{}
	var mu sync.Mutex

	worked := p.handleStepError(context.Background(), 1, "Review.Script.Tone", apperr.StoreTransient("Review.Script.Tone", 1, errors.New("lock timeout")), attempts, &mu)

	assert.True(t, worked)
	assert.Equal(t, 1, attempts["Review.Script.Tone"])
}

// A recoverable ProcessorFailed error is retried the same way.
func TestHandleStepErrorRetriesRecoverableProcessorFailure(t *testing.T) {
	p := testPool(t)
	attempts := map[string]int{}
	var mu sync.Mutex

	worked := p.handleStepError(context.Background(), 1, "Title.From.Idea", apperr.ProcessorFailed("Title.From.Idea", 1, true, "upstream timeout"), attempts, &mu)

	assert.True(t, worked)
}

// A fatal (non-retryable) error is logged and the stage left alone -- no
// retry accounting, no "work happened" signal.
func TestHandleStepErrorDoesNotRetryFatalErrors(t *testing.T) {
	p := testPool(t)
	attempts := map[string]int{}
	var mu sync.Mutex

	worked := p.handleStepError(context.Background(), 1, "Title.From.Idea", apperr.IllegalTransition("Draft", "Published", 1, []string{"Title.From.Idea"}), attempts, &mu)

	assert.False(t, worked)
	assert.Equal(t, 0, attempts["Title.From.Idea"])
}

// AlreadyDone is swallowed as a success signal, not a retry.
func TestHandleStepErrorTreatsAlreadyDoneAsWork(t *testing.T) {
	p := testPool(t)
	attempts := map[string]int{}
	var mu sync.Mutex

	worked := p.handleStepError(context.Background(), 1, "Title.From.Idea", apperr.AlreadyDone("Title.From.Idea", 1), attempts, &mu)

	assert.True(t, worked)
}

// Once the retry budget is exhausted, the attempt counter resets and the
// caller is told no further work happened.
func TestHandleStepErrorExhaustsRetryBudget(t *testing.T) {
	p := testPool(t)
	attempts := map[string]int{}
	var mu sync.Mutex

	var worked bool
	for i := 0; i < p.cfg.RetryMaxAttempts; i++ {
		worked = p.handleStepError(context.Background(), 1, "Review.Script.Tone", apperr.StoreTransient("Review.Script.Tone", 1, errors.New("deadlock")), attempts, &mu)
		assert.True(t, worked)
	}
	worked = p.handleStepError(context.Background(), 1, "Review.Script.Tone", apperr.StoreTransient("Review.Script.Tone", 1, errors.New("deadlock")), attempts, &mu)
	assert.False(t, worked)
	assert.Equal(t, 0, attempts["Review.Script.Tone"])
}
