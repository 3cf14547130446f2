// Package agent provides CLI agent adapters that invoke an external
// command-line program as a black-box subprocess. Two interchangeable
// backends exist: a Claude-style CLI that takes the prompt as an argument
// and reads document content from a staged temp file, and a Codex-style CLI
// that takes the prompt on stdin with content embedded inline.
package agent

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/logger"
)

// killDelay is how long a timed-out subprocess gets between SIGKILL being
// requested and the wait giving up on it.
const killDelay = 5 * time.Second

// run executes one agent subprocess with the configured timeout and returns
// its stdout. The subprocess is killed on timeout; failures are classified
// into *domain.AgentError kinds.
func run(ctx context.Context, timeout time.Duration, command string, args []string, stdin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.WaitDelay = killDelay
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running agent: %s (%d args, timeout %s)", command, len(args), timeout)
	start := time.Now()
	err := cmd.Run()
	logger.Debug("Agent finished in %s", time.Since(start).Round(time.Millisecond))

	if err == nil {
		return stdout.String(), nil
	}

	switch ctx.Err() {
	case context.DeadlineExceeded:
		return "", &domain.AgentError{Kind: domain.AgentTimeout, Err: ctx.Err()}
	case context.Canceled:
		// Operator abort, not an agent failure; propagate it unwrapped
		// so callers stop instead of retrying.
		return "", ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &domain.AgentError{
			Kind:     domain.AgentExitError,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return "", &domain.AgentError{Kind: domain.AgentLaunchFailure, Err: err}
}
