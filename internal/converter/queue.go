package converter

import (
	"context"
	"errors"
	"sync"
	"time"

	obsmetrics "github.com/lingkodlabs/lingkod/internal/observability/metrics"
	"go.uber.org/zap"
)

type job struct {
	inputPath  string
	outputDir  string
	enqueuedAt time.Time
	done       chan error
}

// jobQueue serializes converter invocations: one owner goroutine drains the
// FIFO and is the only caller of the runner, so at most one conversion is in
// flight no matter how many jobs are queued. After each job it immediately
// checks for more work; there is no polling delay.
type jobQueue struct {
	sup     *Supervisor
	log     *zap.Logger
	metrics *obsmetrics.PipelineMetrics

	mu      sync.Mutex
	runner  Runner
	pending []*job
	running bool
	started bool
	wake    chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func newJobQueue(sup *Supervisor, runner Runner, log *zap.Logger, metrics *obsmetrics.PipelineMetrics) *jobQueue {
	return &jobQueue{
		sup:     sup,
		runner:  runner,
		log:     log.Named("queue"),
		metrics: metrics,
		wake:    make(chan struct{}, 1),
	}
}

func (q *jobQueue) ensureRunner(build func() Runner) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.runner == nil {
		q.runner = build()
	}
}

func (q *jobQueue) submit(inputPath, outputDir string) <-chan error {
	done := make(chan error, 1)

	if !q.sup.Ready() {
		done <- ErrNotReady
		return done
	}

	q.mu.Lock()
	// Checked under the same mutex stop() takes: a job enqueued after the
	// drain goroutine is told to exit would never resolve its future.
	if !q.started {
		q.mu.Unlock()
		done <- ErrNotReady
		return done
	}
	q.pending = append(q.pending, &job{
		inputPath:  inputPath,
		outputDir:  outputDir,
		enqueuedAt: time.Now(),
		done:       done,
	})
	depth := len(q.pending)
	if q.running {
		depth++
	}
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return done
}

func (q *jobQueue) start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.stopCh = make(chan struct{})
	stopCh := q.stopCh
	q.mu.Unlock()

	q.wg.Add(1)
	go q.drain(stopCh)
}

func (q *jobQueue) stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()

	// Reject anything still queued so no caller waits forever.
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, j := range pending {
		j.done <- ErrNotReady
	}
	q.metrics.SetQueueDepth(0)
}

func (q *jobQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	depth := len(q.pending)
	if q.running {
		depth++
	}
	return depth
}

func (q *jobQueue) drain(stopCh <-chan struct{}) {
	defer q.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-q.wake:
		}

		for {
			select {
			case <-stopCh:
				return
			default:
			}

			j := q.pop()
			if j == nil {
				break
			}
			q.run(j)
			q.finish()
		}
	}
}

func (q *jobQueue) pop() *job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	j := q.pending[0]
	q.pending = q.pending[1:]
	q.running = true
	return j
}

func (q *jobQueue) finish() {
	q.mu.Lock()
	q.running = false
	depth := len(q.pending)
	q.mu.Unlock()
	q.metrics.SetQueueDepth(depth)
}

func (q *jobQueue) run(j *job) {
	q.metrics.ObserveJobWait(time.Since(j.enqueuedAt))

	q.mu.Lock()
	runner := q.runner
	q.mu.Unlock()

	if runner == nil || !q.sup.Ready() {
		j.done <- ErrNotReady
		return
	}

	timeout := q.sup.conversionTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := runner.Convert(ctx, j.inputPath, j.outputDir)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		q.metrics.ObserveJobDuration(obsmetrics.OutcomeOK, elapsed)
		q.log.Debug("conversion finished",
			zap.String("input", j.inputPath),
			zap.Duration("elapsed", elapsed),
		)
	case errors.Is(err, context.DeadlineExceeded):
		q.metrics.ObserveJobDuration(obsmetrics.OutcomeTimeout, elapsed)
		q.log.Warn("conversion timed out",
			zap.String("input", j.inputPath),
			zap.Duration("timeout", timeout),
		)
	default:
		q.metrics.ObserveJobDuration(obsmetrics.OutcomeError, elapsed)
		q.log.Error("conversion failed",
			zap.String("input", j.inputPath),
			zap.Error(err),
		)
	}

	j.done <- err
}
