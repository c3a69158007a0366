package process

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/loykin/videospace/internal/logger"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

func waitDone(t *testing.T, c *Child, d time.Duration) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(d):
		t.Fatalf("process %d did not exit within %s", c.PID(), d)
	}
}

func TestLaunchAndTerminate(t *testing.T) {
	requireUnix(t)
	c, err := ExecLauncher{}.Launch(Spec{Name: "sleeper", Command: "sleep", Args: []string{"5"}})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if c.PID() <= 0 || c.StartedAt().IsZero() || c.Name() != "sleeper" {
		t.Fatalf("handle not populated: pid=%d started=%v", c.PID(), c.StartedAt())
	}
	if !c.Alive() {
		t.Fatal("expected child alive right after launch")
	}
	if err := c.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	waitDone(t, c, 3*time.Second)
	if c.Alive() {
		t.Fatal("expected child not alive after reap")
	}
	if c.ExitErr() == nil {
		t.Fatal("expected non-nil exit error for a signalled process")
	}
}

func TestTerminateReachesShellDescendants(t *testing.T) {
	requireUnix(t)
	c, err := ExecLauncher{}.Launch(Spec{Name: "tree", Command: "sh -c 'sleep 5 & wait'"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := c.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	waitDone(t, c, 3*time.Second)
}

func TestLaunchMissingExecutable(t *testing.T) {
	_, err := ExecLauncher{}.Launch(Spec{Name: "nope", Command: "definitely-not-a-real-binary-xyz", Args: []string{"a"}})
	if err == nil {
		t.Fatal("expected spawn error for missing executable")
	}
}

func TestLaunchMissingWorkDir(t *testing.T) {
	requireUnix(t)
	_, err := ExecLauncher{}.Launch(Spec{Name: "wd", Command: "sleep", Args: []string{"1"}, WorkDir: filepath.Join(t.TempDir(), "absent")})
	if err == nil {
		t.Fatal("expected spawn error for missing working directory")
	}
}

func TestLaunchWritesLogsInWorkDir(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	logs := filepath.Join(dir, "logs")
	c, err := ExecLauncher{}.Launch(Spec{
		Name:    "cfg",
		Command: "sh -c 'pwd; echo err 1>&2'",
		WorkDir: work,
		Log:     logger.Config{Dir: logs},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	waitDone(t, c, 3*time.Second)
	if c.ExitErr() != nil {
		t.Fatalf("unexpected exit error: %v", c.ExitErr())
	}
	out, err := os.ReadFile(filepath.Join(logs, "cfg.stdout.log"))
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	wantDir, _ := filepath.EvalSymlinks(work)
	gotDir, _ := filepath.EvalSymlinks(strings.TrimSpace(string(out)))
	if gotDir != wantDir {
		t.Fatalf("child ran in %q, want %q", gotDir, wantDir)
	}
	errOut, err := os.ReadFile(filepath.Join(logs, "cfg.stderr.log"))
	if err != nil || !strings.Contains(string(errOut), "err") {
		t.Fatalf("stderr log missing content: %v %q", err, errOut)
	}
}

func TestTerminateAfterExitReportsError(t *testing.T) {
	requireUnix(t)
	c, err := ExecLauncher{}.Launch(Spec{Name: "quick", Command: "true"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	waitDone(t, c, 3*time.Second)
	if err := c.Terminate(); !errors.Is(err, os.ErrProcessDone) {
		t.Fatalf("expected os.ErrProcessDone for a reaped process, got %v", err)
	}
	if c.Alive() {
		t.Fatal("reaped process reported alive")
	}
}
