package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/lingkodlabs/lingkod/internal/config"
	obsmetrics "github.com/lingkodlabs/lingkod/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	// ErrNotReady is surfaced when a job is submitted before Start has
	// marked the daemon up. Callers are expected to have awaited Start.
	ErrNotReady = errors.New("converter_not_ready")

	// ErrDaemonFailed means the daemon exited during its warmup window.
	ErrDaemonFailed = errors.New("converter_daemon_failed")
)

// Supervisor owns the single long-lived converter process and the serialized
// job queue in front of it. The daemon cannot handle concurrent jobs; the
// queue's drain loop is the only mechanism enforcing that, never the process
// itself.
type Supervisor struct {
	log     *zap.Logger
	policy  *config.IssuancePolicyHolder
	metrics *obsmetrics.PipelineMetrics

	bin  string
	port int

	mu         sync.Mutex
	cmd        *exec.Cmd
	exited     chan error
	profileDir string
	ready      bool

	queue *jobQueue
}

type SupervisorParam struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Policy  *config.IssuancePolicyHolder
	Metrics *obsmetrics.PipelineMetrics `optional:"true"`
	Runner  Runner                      `optional:"true"`
}

func NewSupervisor(p SupervisorParam) *Supervisor {
	s := &Supervisor{
		log:     p.Log.Named("converter"),
		policy:  p.Policy,
		metrics: p.Metrics,
		bin:     p.Cfg.ConverterBin,
		port:    p.Cfg.ConverterPort,
	}
	s.queue = newJobQueue(s, p.Runner, s.log, p.Metrics)
	return s
}

// Start launches the daemon in headless listening mode with an isolated
// profile directory, waits out the warmup grace period, and verifies the
// process survived it. Idempotent: a running, ready daemon makes Start a
// no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return nil
	}

	profileDir, err := os.MkdirTemp("", "lingkod-soffice-*")
	if err != nil {
		s.mu.Unlock()
		return err
	}

	cmd := exec.Command(s.bin,
		"--headless",
		"--invisible",
		"--norestore",
		fmt.Sprintf("--accept=socket,host=127.0.0.1,port=%d;urp", s.port),
		fmt.Sprintf("-env:UserInstallation=file://%s", profileDir),
	)
	// Own process group so Stop can take down soffice and its children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(profileDir)
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrDaemonFailed, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	s.cmd = cmd
	s.exited = exited
	s.profileDir = profileDir
	warmup := s.policy.Get().ConverterWarmup()
	s.mu.Unlock()

	s.log.Info("converter daemon starting",
		zap.String("bin", s.bin),
		zap.Int("port", s.port),
		zap.String("profile_dir", profileDir),
		zap.Duration("warmup", warmup),
	)

	select {
	case err := <-exited:
		s.teardown()
		return fmt.Errorf("%w: exited during warmup: %v", ErrDaemonFailed, err)
	case <-ctx.Done():
		s.teardown()
		return ctx.Err()
	case <-time.After(warmup):
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.queue.ensureRunner(func() Runner {
		return newSofficeRunner(s.bin, profileDir)
	})

	s.queue.start()
	s.log.Info("converter daemon ready", zap.Int("port", s.port))
	return nil
}

// Stop force-terminates the daemon's process group and clears the ready
// flag. Safe to call repeatedly and on a supervisor that never started.
func (s *Supervisor) Stop(ctx context.Context) error {
	_ = ctx
	s.queue.stop()
	s.teardown()
	return nil
}

// Ready reports whether the daemon is up and accepting jobs.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Submit enqueues a conversion and returns its future. Enqueue always
// succeeds; the future rejects on not-ready, timeout, or converter failure.
func (s *Supervisor) Submit(inputPath, outputDir string) <-chan error {
	return s.queue.submit(inputPath, outputDir)
}

// QueueDepth reports pending plus in-flight jobs.
func (s *Supervisor) QueueDepth() int {
	return s.queue.depth()
}

func (s *Supervisor) conversionTimeout() time.Duration {
	return s.policy.Get().ConversionTimeout()
}

func (s *Supervisor) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil {
		// Negative pid targets the whole process group.
		_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGKILL)
		if s.exited != nil {
			<-s.exited
		}
		s.log.Info("converter daemon stopped")
	}
	if s.profileDir != "" {
		_ = os.RemoveAll(s.profileDir)
	}
	s.cmd = nil
	s.exited = nil
	s.profileDir = ""
	s.ready = false
}

var Module = fx.Module("converter",
	fx.Provide(NewSupervisor),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, s *Supervisor) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}
