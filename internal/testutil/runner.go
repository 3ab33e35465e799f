package testutil

import (
	"context"
	"sync"
)

// RunCall is one recorded exec.
type RunCall struct {
	Dir     string
	Command string
}

// RecordingRunner records exec commands instead of running them.
//
// Thread-safety: RecordingRunner is safe for concurrent use via internal mutex.
type RecordingRunner struct {
	mu    sync.Mutex
	calls []RunCall

	// Err is returned from every Run, simulating a failing command.
	Err error

	// OnRun is called with each command as it is recorded.
	OnRun func(RunCall)
}

// Run records the command and returns r.Err.
func (r *RecordingRunner) Run(_ context.Context, dir, command string) error {
	call := RunCall{Dir: dir, Command: command}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	onRun := r.OnRun
	r.mu.Unlock()

	if onRun != nil {
		onRun(call)
	}
	return r.Err
}

// Calls returns the recorded execs in order.
func (r *RecordingRunner) Calls() []RunCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunCall(nil), r.calls...)
}

// Commands returns just the command lines of the recorded execs.
func (r *RecordingRunner) Commands() []string {
	calls := r.Calls()
	commands := make([]string, len(calls))
	for i, c := range calls {
		commands[i] = c.Command
	}
	return commands
}
