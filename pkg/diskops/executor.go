package diskops

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"

	"github.com/oneclickfedora/installer/pkg/errors"
)

// Command is one process invocation. Env entries are appended to the
// current environment.
type Command struct {
	Name string
	Args []string
	Env  []string
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs host processes.
type Executor interface {
	// Run executes cmd and blocks until it exits. A non-zero exit status is
	// reported in Result.ExitCode; err is set only when the process could
	// not be run at all.
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			slog.Debug("exec_exit_nonzero", "command", c.Name, "exit_code", res.ExitCode)
			return res, nil
		}
		slog.Error("exec_start_failed", "command", c.Name, "error", err)
		return res, errors.Wrap(err, "failed to run "+c.Name)
	}

	return res, nil
}
