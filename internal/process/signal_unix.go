//go:build !windows

package process

import (
	"errors"
	"syscall"
)

// terminate sends SIGTERM to the child's process group. ESRCH from the group
// (already gone) falls back to the pid itself so the caller still sees the
// OS verdict for the process it owns.
func terminate(pid int) error {
	if pid <= 0 {
		return syscall.ESRCH
	}
	err := syscall.Kill(-pid, syscall.SIGTERM)
	if errors.Is(err, syscall.ESRCH) {
		return syscall.Kill(pid, syscall.SIGTERM)
	}
	return err
}
