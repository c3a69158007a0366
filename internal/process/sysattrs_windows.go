//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// CREATE_NEW_PROCESS_GROUP keeps console control events of the shell away from the child.
const CREATE_NEW_PROCESS_GROUP = 0x00000200

// configureSysProcAttr starts the child in a new process group.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: CREATE_NEW_PROCESS_GROUP}
}
