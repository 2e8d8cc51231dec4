// Package workerpool is the pull-loop driver of the workflow engine: N
// worker goroutines, each bound to one or more stages, repeatedly calling
// Dispatcher.Step, sleeping for the poll interval after a pass in which no
// stage had work and for a jittered backoff before retrying a retryable
// error. Grounded on the teacher's worker.Worker run loop -- a ticker,
// per-tick claim-and-dispatch, panic recovery, and context cancellation --
// adapted to stage-scoped Dispatcher.Step calls instead of job-queue
// claims.
package workerpool

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contentloom/storyforge/internal/dispatcher"
	"github.com/contentloom/storyforge/internal/platform/apperr"
	"github.com/contentloom/storyforge/internal/platform/logger"
)

// Config tunes the pool's polling and backoff behavior.
type Config struct {
	// Stages lists the stage names this pool's workers may dispatch. A
	// worker cycles through all of them each tick.
	Stages []string
	// Concurrency is how many worker goroutines to spawn. Defaults to 1.
	Concurrency int
	// PollInterval is how long a worker sleeps after seeing NoWork on
	// every assigned stage in one pass.
	PollInterval time.Duration
	// RetryMaxAttempts bounds retries of a StoreTransient/recoverable
	// ProcessorFailed error before it is surfaced to the log as fatal
	// for that attempt.
	RetryMaxAttempts int
	// RetryBaseBackoff is the base duration for exponential backoff with
	// jitter between retry attempts.
	RetryBaseBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = 5
	}
	if c.RetryBaseBackoff <= 0 {
		c.RetryBaseBackoff = 250 * time.Millisecond
	}
	return c
}

// Pool runs Dispatcher.Step across a fixed set of stages using a fixed
// number of worker goroutines.
type Pool struct {
	dispatcher *dispatcher.Dispatcher
	log        *logger.Logger
	cfg        Config
}

// New constructs a Pool. It does not start any goroutines; call Start.
func New(d *dispatcher.Dispatcher, baseLog *logger.Logger, cfg Config) *Pool {
	return &Pool{dispatcher: d, log: baseLog.With("component", "WorkerPool"), cfg: cfg.withDefaults()}
}

// Start spawns cfg.Concurrency goroutines, each running runLoop, and
// returns immediately. Every goroutine exits cleanly when ctx is done.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info("starting worker pool", "concurrency", p.cfg.Concurrency, "stages", p.cfg.Stages)
	for i := 0; i < p.cfg.Concurrency; i++ {
		go p.runLoop(ctx, i+1)
	}
}

func (p *Pool) runLoop(ctx context.Context, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic recovered", "worker_id", workerID, "panic", r)
		}
	}()

	attempts := make(map[string]int, len(p.cfg.Stages))
	var attemptsMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			p.log.Info("worker loop stopped", "worker_id", workerID)
			return
		default:
		}

		if !p.tick(ctx, workerID, attempts, &attemptsMu) {
			if !sleepCtx(ctx, p.cfg.PollInterval) {
				return
			}
		}
	}
}

// tick dispatches every assigned stage concurrently via an errgroup (one
// goroutine per stage, bounded by len(p.cfg.Stages) since each stage is
// independent work), grounded on the teacher's batch-fan-out shape in its
// embedding/ingestion steps. It returns whether any stage produced work or
// a retryable error this tick, so the caller knows whether to sleep.
func (p *Pool) tick(ctx context.Context, workerID int, attempts map[string]int, attemptsMu *sync.Mutex) bool {
	g, gctx := errgroup.WithContext(ctx)

	var anyWorkMu sync.Mutex
	anyWork := false

	for _, stage := range p.cfg.Stages {
		stage := stage
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("stage step panic recovered", "worker_id", workerID, "stage", stage, "panic", r)
				}
			}()
			res, err := p.dispatcher.Step(gctx, stage)
			if err != nil {
				worked := p.handleStepError(gctx, workerID, stage, err, attempts, attemptsMu)
				if worked {
					anyWorkMu.Lock()
					anyWork = true
					anyWorkMu.Unlock()
				}
				return nil
			}
			if res.Kind == dispatcher.StepAdvanced {
				attemptsMu.Lock()
				attempts[stage] = 0
				attemptsMu.Unlock()
				anyWorkMu.Lock()
				anyWork = true
				anyWorkMu.Unlock()
				p.log.Debug("stage advanced", "worker_id", workerID, "stage", stage, "story_id", res.StoryID, "from", res.From, "to", res.To)
			}
			return nil
		})
	}

	_ = g.Wait()
	return anyWork
}

// handleStepError applies the retry policy of the error table: transient
// store errors and recoverable processor failures are retried in-process
// with exponential backoff up to RetryMaxAttempts, after which they are
// logged as surfaced failures; AlreadyDone is swallowed at debug level;
// everything else is a non-retryable logic error, also swallowed (the
// stage stays put, flagged for an operator) so one bad Story does not
// wedge the whole worker loop. Returns true if the caller should treat
// this as "work happened" (so the pool does not go idle-sleep on a busy
// retry loop).
func (p *Pool) handleStepError(ctx context.Context, workerID int, stage string, err error, attempts map[string]int, attemptsMu *sync.Mutex) bool {
	if apperr.Is(err, apperr.KindAlreadyDone) {
		p.log.Debug("stage already done", "worker_id", workerID, "stage", stage)
		return true
	}

	var appErr *apperr.Error
	retryable := false
	if ae, ok := err.(*apperr.Error); ok {
		appErr = ae
		retryable = ae.Retryable()
	}

	if !retryable {
		p.log.Error("dispatcher step failed", "worker_id", workerID, "stage", stage, "error", err)
		return false
	}

	attemptsMu.Lock()
	attempts[stage]++
	attempt := attempts[stage]
	exhausted := attempt > p.cfg.RetryMaxAttempts
	if exhausted {
		attempts[stage] = 0
	}
	attemptsMu.Unlock()

	if exhausted {
		p.log.Error("retry budget exhausted", "worker_id", workerID, "stage", stage, "attempts", attempt, "error", err)
		return false
	}

	backoff := computeBackoff(p.cfg.RetryBaseBackoff, attempt)
	p.log.Warn("retryable step error, backing off", "worker_id", workerID, "stage", stage, "kind", kindOf(appErr), "attempt", attempt, "backoff", backoff)
	sleepCtx(ctx, backoff)
	return true
}

func kindOf(e *apperr.Error) apperr.Kind {
	if e == nil {
		return ""
	}
	return e.Kind
}

// computeBackoff is exponential backoff with full jitter: a random
// duration in [0, base*2^(attempt-1)].
func computeBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	ceiling := base << uint(attempt-1)
	if ceiling <= 0 {
		ceiling = base
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}

// sleepCtx sleeps for d or returns early (false) if ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
