// Package executor runs external commands with captured output, working
// directory and environment control, and typed exit-code errors. All
// checkout-tool and git invocations go through it so tests can substitute
// a fake Runner.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/repoprep/internal/logfields"
)

// Spec describes a single command invocation.
type Spec struct {
	Program string
	Args    []string
	// Dir is the working directory; empty means the process's own.
	Dir string
	// Env entries are appended to the current process environment.
	Env map[string]string
	// Stdout/Stderr, when set, receive streamed output in addition to capture.
	Stdout io.Writer
	Stderr io.Writer
}

// Result holds the captured output and exit code of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a command that started but exited non-zero.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Cmd, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ExitCode returns the subprocess exit code for callers that propagate it.
func (e *ExitError) ExitCode() int { return e.Code }

// Runner executes command specs. Production code uses CommandRunner;
// tests substitute recording fakes.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// CommandRunner is the exec-backed Runner.
type CommandRunner struct{}

// NewCommandRunner creates the default subprocess runner.
func NewCommandRunner() *CommandRunner { return &CommandRunner{} }

// Run executes the spec and waits for completion. A non-zero exit returns
// the captured Result together with an *ExitError; failures to start the
// process return a wrapped error with ExitCode -1.
func (r *CommandRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if spec.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdoutBuf, spec.Stdout)
	}
	if spec.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, spec.Stderr)
	}

	display := displayCommand(spec)
	slog.Debug("Running command", logfields.Command(display), logfields.Path(spec.Dir))

	err := cmd.Run()
	result := &Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Cmd: display, Code: result.ExitCode, Stderr: result.Stderr}
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("start %s: %w", display, err)
	}
}

func displayCommand(spec Spec) string {
	if len(spec.Args) == 0 {
		return spec.Program
	}
	return spec.Program + " " + strings.Join(spec.Args, " ")
}
