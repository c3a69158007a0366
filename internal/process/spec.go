package process

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/loykin/videospace/internal/logger"
)

// Spec describes the external server process.
// The child inherits the shell's environment; there are no overrides.
type Spec struct {
	Name    string        `json:"name" mapstructure:"name"`
	Command string        `json:"command" mapstructure:"command"`   // executable, or a full command line when Args is empty
	Args    []string      `json:"args" mapstructure:"args"`         // passed verbatim, no shell
	WorkDir string        `json:"work_dir" mapstructure:"work_dir"` // relative paths resolve against the shell's working directory
	Log     logger.Config `json:"log" mapstructure:"log"`           // optional stdout/stderr rotation
}

// BuildCommand constructs an *exec.Cmd for the spec.
// With Args set, Command is executed directly with those arguments.
// Otherwise Command is treated as a command line: an explicit "sh -c" is
// honoured without double-wrapping, shell metacharacters route through
// /bin/sh -c, and anything else is split on whitespace.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if len(s.Args) > 0 {
		// #nosec G204
		return exec.Command(cmdStr, s.Args...)
	}
	if cmdStr == "" {
		return trueCommand()
	}
	if _, afterC, ok := parseExplicitShell(cmdStr); ok {
		return shellCommand(afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		return shellCommand(cmdStr)
	}
	parts := strings.Fields(cmdStr)
	// #nosec G204
	return exec.Command(parts[0], parts[1:]...)
}

// Validate checks the fields a launch cannot do without.
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("process requires name")
	}
	if strings.ContainsAny(s.Name, "/\\") || strings.Contains(s.Name, "..") {
		return errors.New("process name must not contain path separators or '..'")
	}
	if strings.TrimSpace(s.Command) == "" {
		return errors.New("process requires command")
	}
	return nil
}

// CommandLine renders the command for logs and errors.
func (s *Spec) CommandLine() string {
	if len(s.Args) == 0 {
		return strings.TrimSpace(s.Command)
	}
	return strings.TrimSpace(s.Command) + " " + strings.Join(s.Args, " ")
}

// parseExplicitShell detects "sh -c <ARG>" style prefixes and returns the
// script after -c with one pair of wrapping quotes removed.
func parseExplicitShell(cmdStr string) (string, string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return strings.Fields(p)[0], after, true
		}
	}
	return "", "", false
}
