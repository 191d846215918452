package converter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lingkodlabs/lingkod/internal/config"
	"go.uber.org/zap"
)

type fakeRunner struct {
	mu            sync.Mutex
	order         []string
	inFlight      int
	maxInFlight   int
	delay         time.Duration
	blockUntilCtx bool
	err           error
}

func (f *fakeRunner) Convert(ctx context.Context, inputPath, outputDir string) error {
	f.mu.Lock()
	f.order = append(f.order, inputPath)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.blockUntilCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeRunner) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func (f *fakeRunner) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func testSupervisor(t *testing.T, runner Runner, policy config.IssuancePolicy) *Supervisor {
	t.Helper()

	s := NewSupervisor(SupervisorParam{
		Cfg:    config.Config{ConverterBin: "soffice", ConverterPort: 2002},
		Log:    zap.NewNop(),
		Policy: config.NewStaticIssuancePolicyHolder(policy),
		Runner: runner,
	})
	return s
}

// markReady flips the supervisor into the post-warmup state without spawning
// a real daemon process.
func markReady(s *Supervisor) {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.queue.start()
}

func TestSubmitBeforeStartRejects(t *testing.T) {
	s := testSupervisor(t, &fakeRunner{}, config.DefaultIssuancePolicy())

	select {
	case err := <-s.Submit("/tmp/in.docx", "/tmp/out"):
		if !errors.Is(err, ErrNotReady) {
			t.Fatalf("expected ErrNotReady, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("submit on a stopped supervisor must reject immediately")
	}
}

func TestJobsRunSeriallyInOrder(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	s := testSupervisor(t, runner, config.DefaultIssuancePolicy())
	markReady(s)
	defer s.queue.stop()

	inputs := []string{"/tmp/a.docx", "/tmp/b.docx", "/tmp/c.docx", "/tmp/d.docx"}
	futures := make([]<-chan error, 0, len(inputs))
	for _, input := range inputs {
		futures = append(futures, s.Submit(input, "/tmp/out"))
	}

	for i, future := range futures {
		select {
		case err := <-future:
			if err != nil {
				t.Fatalf("job %d failed: %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("job %d never completed", i)
		}
	}

	if got := runner.Order(); len(got) != len(inputs) {
		t.Fatalf("expected %d conversions, got %d", len(inputs), len(got))
	} else {
		for i, input := range inputs {
			if got[i] != input {
				t.Fatalf("expected FIFO order %v, got %v", inputs, got)
			}
		}
	}
	if runner.MaxInFlight() != 1 {
		t.Fatalf("conversions must never overlap, saw %d in flight", runner.MaxInFlight())
	}
}

func TestJobTimeoutSurfacesDeadline(t *testing.T) {
	policy := config.DefaultIssuancePolicy()
	policy.ConversionTimeoutSeconds = 1

	runner := &fakeRunner{blockUntilCtx: true}
	s := testSupervisor(t, runner, policy)
	markReady(s)
	defer s.queue.stop()

	select {
	case err := <-s.Submit("/tmp/slow.docx", "/tmp/out"):
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected DeadlineExceeded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed-out job never resolved")
	}
}

func TestRunnerFailureDoesNotStallQueue(t *testing.T) {
	runner := &fakeRunner{err: errors.New("soffice crashed")}
	s := testSupervisor(t, runner, config.DefaultIssuancePolicy())
	markReady(s)
	defer s.queue.stop()

	first := <-s.Submit("/tmp/bad.docx", "/tmp/out")
	if first == nil {
		t.Fatalf("expected failure from first job")
	}

	runner.mu.Lock()
	runner.err = nil
	runner.mu.Unlock()

	select {
	case err := <-s.Submit("/tmp/good.docx", "/tmp/out"):
		if err != nil {
			t.Fatalf("queue must keep draining after a failed job, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("queue stalled after a failed job")
	}
}

func TestSubmitDuringStopResolvesFuture(t *testing.T) {
	runner := &fakeRunner{}
	s := testSupervisor(t, runner, config.DefaultIssuancePolicy())
	markReady(s)

	// Stop the queue while the supervisor still reports ready, the window a
	// caller racing Stop lands in. The future must resolve, not hang.
	s.queue.stop()
	if !s.Ready() {
		t.Fatalf("fixture must keep the ready flag set")
	}

	select {
	case err := <-s.Submit("/tmp/raced.docx", "/tmp/out"):
		if !errors.Is(err, ErrNotReady) {
			t.Fatalf("expected ErrNotReady, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("submission racing stop never resolved")
	}
	if depth := s.QueueDepth(); depth != 0 {
		t.Fatalf("raced submission must not linger in the queue, depth %d", depth)
	}
}

func TestStopRejectsLaterSubmissions(t *testing.T) {
	runner := &fakeRunner{}
	s := testSupervisor(t, runner, config.DefaultIssuancePolicy())
	markReady(s)

	if err := <-s.Submit("/tmp/a.docx", "/tmp/out"); err != nil {
		t.Fatalf("job before stop: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("repeated stop: %v", err)
	}

	if err := <-s.Submit("/tmp/b.docx", "/tmp/out"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady after stop, got %v", err)
	}
	if depth := s.QueueDepth(); depth != 0 {
		t.Fatalf("expected empty queue after stop, got %d", depth)
	}
}
