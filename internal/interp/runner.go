package interp

import (
	"context"
	"io"
	"os/exec"
	"runtime"
)

// CommandRunner runs the command line of an exec command in dir.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) error
}

// ShellRunner runs commands through the platform shell.
type ShellRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellRunner creates a ShellRunner writing to stdout and stderr.
func NewShellRunner(stdout, stderr io.Writer) *ShellRunner {
	return &ShellRunner{Stdout: stdout, Stderr: stderr}
}

// Run executes command with "sh -c", or "cmd /C" on Windows.
func (r *ShellRunner) Run(ctx context.Context, dir, command string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", command)
	}
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}
