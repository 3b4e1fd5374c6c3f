package runner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/shlex"

	"github.com/ceeox/localdeploy/model"
)

// SpawnError means the command never started at all, typically because
// the binary does not exist. The loop logs it and keeps polling.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Runner executes the configured build/run command. The child inherits
// the daemon's stdout/stderr so build output reaches the operator in
// real time.
type Runner struct {
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func New(logger *slog.Logger) *Runner {
	return &Runner{logger: logger, stdout: os.Stdout, stderr: os.Stderr}
}

// Run spawns command with its working directory set to dir and blocks
// until the child exits. A non-zero exit is reported in the outcome,
// not as an error. The child is deliberately not tied to a context: a
// shutdown signal reaches it through normal process-group delivery
// instead of a forced kill.
func (r *Runner) Run(command, dir string) (model.CommandOutcome, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return model.CommandOutcome{}, &SpawnError{Command: command, Err: err}
	}
	if len(argv) == 0 {
		return model.CommandOutcome{}, &SpawnError{Command: command, Err: errors.New("empty command")}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	r.logger.Info("Running command", "command", command, "dir", dir)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return model.CommandOutcome{}, &SpawnError{Command: command, Err: err}
	}

	err = cmd.Wait()
	outcome := model.CommandOutcome{
		ExitCode: cmd.ProcessState.ExitCode(),
		Elapsed:  time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return outcome, &SpawnError{Command: command, Err: err}
		}
	}
	return outcome, nil
}
