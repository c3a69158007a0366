package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/videospace/internal/history"
	"github.com/loykin/videospace/internal/logger"
	"github.com/loykin/videospace/internal/metrics"
	"github.com/loykin/videospace/internal/process"
)

// Status messages returned by Start and Stop.
const (
	MsgStarted        = "server started"
	MsgAlreadyRunning = "server already running"
	MsgStopped        = "server stopped"
	MsgNotRunning     = "server not running"
)

// Handle is the supervisor's view of a spawned OS process.
type Handle interface {
	PID() int
	Terminate() error
	Alive() bool
}

// Launcher creates the OS process for a spec.
type Launcher interface {
	Launch(spec process.Spec) (Handle, error)
}

// LaunchFunc adapts a function to Launcher.
type LaunchFunc func(spec process.Spec) (Handle, error)

func (f LaunchFunc) Launch(spec process.Spec) (Handle, error) { return f(spec) }

// execLaunch is the default launcher backed by os/exec.
func execLaunch(spec process.Spec) (Handle, error) {
	c, err := process.ExecLauncher{}.Launch(spec)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// state is either stopped{} or running{...}; a handle exists only while running.
type state interface{ isState() }

type stopped struct{}

type running struct {
	handle    Handle
	startedAt time.Time
}

func (stopped) isState() {}
func (running) isState() {}

// Info is a diagnostic snapshot of the supervisor.
type Info struct {
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	WorkDir   string    `json:"work_dir"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	// Alive is the handle's own view; Running may disagree when the child
	// exited on its own.
	Alive bool `json:"alive"`
}

// Supervisor serializes start, stop and status of one external server process.
type Supervisor struct {
	spec     process.Spec
	launcher Launcher
	log      *slog.Logger

	mu    sync.Mutex
	state state
	sinks []history.Sink

	pending sync.WaitGroup // in-flight history sends
}

// New returns a stopped supervisor for spec. A nil launcher uses os/exec and
// a nil logger discards output.
func New(spec process.Spec, launcher Launcher, log *slog.Logger) *Supervisor {
	if launcher == nil {
		launcher = LaunchFunc(execLaunch)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Supervisor{
		spec:     spec,
		launcher: launcher,
		log:      log.With("component", "supervisor", "name", spec.Name),
		state:    stopped{},
	}
}

// SetHistory configures the sinks that receive start and stop transitions.
func (s *Supervisor) SetHistory(sinks ...history.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append([]history.Sink(nil), sinks...)
}

// Start spawns the server unless it is already running. A second Start while
// running reports MsgAlreadyRunning and spawns nothing.
func (s *Supervisor) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	if _, ok := s.state.(running); ok {
		s.mu.Unlock()
		s.log.Debug("start ignored, already running")
		return MsgAlreadyRunning, nil
	}
	h, err := s.launcher.Launch(s.spec)
	if err != nil {
		s.mu.Unlock()
		metrics.IncSpawnFailure(s.spec.Name)
		serr := &SpawnError{Command: s.spec.CommandLine(), Err: err}
		s.log.Error("spawn failed", "command", serr.Command, "error", err)
		return "", serr
	}
	s.state = running{handle: h, startedAt: time.Now()}
	sinks := s.sinks
	s.mu.Unlock()

	pid := h.PID()
	metrics.IncStart(s.spec.Name)
	s.log.Info("server started", "pid", pid, "command", s.spec.CommandLine(), "work_dir", s.spec.WorkDir)
	s.record(ctx, sinks, history.EventStart, pid)
	return MsgStarted, nil
}

// Stop terminates the server if one is held. The handle is forgotten before
// the kill is attempted, so a failed termination still leaves the supervisor
// stopped and a repeated Stop is a no-op. Stop does not wait for exit.
func (s *Supervisor) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	r, ok := s.state.(running)
	if !ok {
		s.mu.Unlock()
		s.log.Debug("stop ignored, not running")
		return MsgNotRunning, nil
	}
	s.state = stopped{}
	pid := r.handle.PID()
	err := r.handle.Terminate()
	sinks := s.sinks
	s.mu.Unlock()

	metrics.IncStop(s.spec.Name)
	s.record(ctx, sinks, history.EventStop, pid)
	if err != nil {
		metrics.IncTerminationFailure(s.spec.Name)
		s.log.Error("terminate failed", "pid", pid, "error", err)
		return "", &TerminationError{PID: pid, Err: err}
	}
	s.log.Info("server stopped", "pid", pid)
	return MsgStopped, nil
}

// Status reports the last known state. It never probes the OS.
func (s *Supervisor) Status() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.(running)
	return ok
}

// Info returns a snapshot of the supervisor and its handle.
func (s *Supervisor) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := Info{Name: s.spec.Name, Command: s.spec.CommandLine(), WorkDir: s.spec.WorkDir}
	if r, ok := s.state.(running); ok {
		in.Running = true
		in.PID = r.handle.PID()
		in.StartedAt = r.startedAt
		in.Alive = r.handle.Alive()
	}
	return in
}

// record sends a transition to every sink without holding the lock or
// blocking the caller. Sink errors are only logged.
func (s *Supervisor) record(ctx context.Context, sinks []history.Sink, t history.EventType, pid int) {
	if len(sinks) == 0 {
		return
	}
	evt := history.NewEvent(t, s.spec.Name, pid, s.spec.CommandLine())
	ctx = context.WithoutCancel(ctx)
	for _, sk := range sinks {
		s.pending.Add(1)
		go func(sk history.Sink) {
			defer s.pending.Done()
			if err := sk.Send(ctx, evt); err != nil {
				s.log.Warn("history send failed", "event", string(t), "error", err)
			}
		}(sk)
	}
}

// Flush waits for history sends started by earlier transitions, or until ctx
// is done. Call it after the last Start or Stop and before closing the sinks.
func (s *Supervisor) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
