package vector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes one external tool invocation inside dir. Implementations
// must stop the process when ctx is done.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
}

// ExecRunner runs tools as local subprocesses.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the
	// process has been killed.
	WaitDelay time.Duration
}

const maxStderr = 2048

// Run starts the command and waits for it. On context expiry the process is
// killed and the context error is returned.
func (r ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 2 * time.Second
	}
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: killed: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s: exit status %d: %s", name, exitErr.ExitCode(), trimOutput(stderr.String()))
	}
	return fmt.Errorf("%s: %w", name, err)
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	return s
}

var _ Runner = ExecRunner{}
