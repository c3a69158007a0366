package process

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Child is a started OS process. Ownership of the handle belongs to whoever
// launched it; Child itself only reaps the process in the background.
type Child struct {
	name      string
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time

	mu      sync.Mutex
	exitErr error
	done    chan struct{}
	closers []io.Closer
}

// ExecLauncher starts processes with os/exec.
type ExecLauncher struct{}

// Launch builds and starts the command described by spec. It returns as soon
// as the OS has created the process; it never waits for the child to exit.
func (ExecLauncher) Launch(spec Spec) (*Child, error) {
	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	configureSysProcAttr(cmd)

	c := &Child{name: spec.Name, cmd: cmd, done: make(chan struct{})}
	if err := c.wireOutput(spec); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		c.closeWriters()
		return nil, err
	}
	c.pid = cmd.Process.Pid
	c.startedAt = time.Now()
	go c.reap()
	return c, nil
}

// wireOutput sends stdout/stderr to rotating files when configured and to
// the shell's own stdio otherwise.
func (c *Child) wireOutput(spec Spec) error {
	c.cmd.Stdout = os.Stdout
	c.cmd.Stderr = os.Stderr
	if !spec.Log.Enabled() {
		return nil
	}
	outW, errW, err := spec.Log.Writers(spec.Name)
	if err != nil {
		return err
	}
	if outW != nil {
		c.cmd.Stdout = outW
		c.closers = append(c.closers, outW)
	}
	if errW != nil {
		c.cmd.Stderr = errW
		c.closers = append(c.closers, errW)
	}
	return nil
}

// reap collects the exit status so the child does not linger as a zombie.
func (c *Child) reap() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.exitErr = err
	c.mu.Unlock()
	c.closeWriters()
	close(c.done)
}

func (c *Child) closeWriters() {
	c.mu.Lock()
	cs := c.closers
	c.closers = nil
	c.mu.Unlock()
	for _, cl := range cs {
		_ = cl.Close()
	}
}

// Name returns the spec name the child was launched with.
func (c *Child) Name() string { return c.name }

// PID returns the OS process id.
func (c *Child) PID() int { return c.pid }

// StartedAt returns when the process was created.
func (c *Child) StartedAt() time.Time { return c.startedAt }

// Terminate asks the OS to end the process. It does not wait for exit.
// Once the child has been reaped its pid may belong to someone else, so no
// signal is sent and os.ErrProcessDone is returned.
func (c *Child) Terminate() error {
	select {
	case <-c.done:
		return os.ErrProcessDone
	default:
	}
	return terminate(c.pid)
}

// Done is closed once the process has exited and been reaped.
func (c *Child) Done() <-chan struct{} { return c.done }

// Alive reports whether the process has not been reaped yet.
func (c *Child) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the error from Wait once the process has exited.
func (c *Child) ExitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitErr
}
