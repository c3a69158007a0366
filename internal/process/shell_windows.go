//go:build windows

package process

import "os/exec"

// shellCommand runs script through cmd.exe.
func shellCommand(script string) *exec.Cmd {
	// #nosec G204
	return exec.Command("cmd", "/C", script)
}

// trueCommand returns a command that always succeeds.
func trueCommand() *exec.Cmd {
	// #nosec G204
	return exec.Command("cmd", "/C", "exit 0")
}
