package process

import (
	"runtime"
	"strings"
	"testing"
)

func requireUnixSpec(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like shell")
	}
}

// An explicit "sh -c" must not be wrapped in a second shell.
func TestBuildCommand_ExplicitShellNoDoubleWrap(t *testing.T) {
	requireUnixSpec(t)
	s := Spec{Name: "x", Command: "sh -c 'echo hi'"}
	cmd := s.BuildCommand()
	if len(cmd.Args) != 3 || cmd.Args[1] != "-c" {
		t.Fatalf("unexpected argv: %#v", cmd.Args)
	}
	if cmd.Args[2] != "echo hi" {
		t.Fatalf("quotes not stripped or double-wrapped: %q", cmd.Args[2])
	}
}

func TestBuildCommand_MetacharTriggersShell(t *testing.T) {
	requireUnixSpec(t)
	s := Spec{Name: "y", Command: "echo hi | wc -c"}
	cmd := s.BuildCommand()
	if len(cmd.Args) < 3 || cmd.Args[1] != "-c" {
		t.Fatalf("expected shell -c wrapping, got argv=%#v", cmd.Args)
	}
}

func TestBuildCommand_ArgsBypassParsing(t *testing.T) {
	s := Spec{Name: "srv", Command: "node", Args: []string{"server.js"}}
	cmd := s.BuildCommand()
	if len(cmd.Args) != 2 || cmd.Args[1] != "server.js" {
		t.Fatalf("unexpected argv: %#v", cmd.Args)
	}
	// Metacharacters in args are passed through untouched.
	s = Spec{Name: "srv", Command: "echo", Args: []string{"a|b"}}
	cmd = s.BuildCommand()
	if len(cmd.Args) != 2 || cmd.Args[1] != "a|b" {
		t.Fatalf("args were reinterpreted: %#v", cmd.Args)
	}
}

func TestBuildCommand_PlainSplit(t *testing.T) {
	s := Spec{Name: "p", Command: "  node   server.js  "}
	cmd := s.BuildCommand()
	if len(cmd.Args) != 2 || cmd.Args[0] != "node" || cmd.Args[1] != "server.js" {
		t.Fatalf("unexpected argv: %#v", cmd.Args)
	}
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name        string
		spec        Spec
		errContains string
	}{
		{name: "valid", spec: Spec{Name: "video-server", Command: "node", Args: []string{"server.js"}}},
		{name: "empty name", spec: Spec{Command: "node"}, errContains: "requires name"},
		{name: "whitespace name", spec: Spec{Name: "  ", Command: "node"}, errContains: "requires name"},
		{name: "traversal name", spec: Spec{Name: "../x", Command: "node"}, errContains: "path separators"},
		{name: "empty command", spec: Spec{Name: "x", Command: " "}, errContains: "requires command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestSpec_CommandLine(t *testing.T) {
	s := Spec{Command: "node", Args: []string{"server.js", "--port", "3000"}}
	if got := s.CommandLine(); got != "node server.js --port 3000" {
		t.Fatalf("CommandLine = %q", got)
	}
	s = Spec{Command: " sh -c 'sleep 1' "}
	if got := s.CommandLine(); got != "sh -c 'sleep 1'" {
		t.Fatalf("CommandLine = %q", got)
	}
}
