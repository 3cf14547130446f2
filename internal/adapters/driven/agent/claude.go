package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
	"github.com/custodia-labs/doctag-cli/internal/core/services"
	"github.com/custodia-labs/doctag-cli/internal/logger"
)

// Ensure ClaudeAgent implements the interface.
var _ driven.Agent = (*ClaudeAgent)(nil)

// ClaudeAgent invokes a Claude-style CLI. The prompt is passed as a command
// argument; document content is never put on the command line. Instead it is
// staged through a uniquely named temp file which the prompt references by
// path, and which is removed on every exit path.
type ClaudeAgent struct {
	cfg domain.AgentSettings
}

// NewClaudeAgent creates a Claude-style agent adapter.
func NewClaudeAgent(cfg domain.AgentSettings) *ClaudeAgent {
	return &ClaudeAgent{cfg: cfg}
}

// Name identifies the backend.
func (a *ClaudeAgent) Name() string {
	return string(domain.AgentClaude)
}

// MaxContentChars is the content budget for this backend.
func (a *ClaudeAgent) MaxContentChars() int {
	return a.cfg.MaxContentChars
}

// Invoke stages the content, builds the prompt against the staged path and
// runs the CLI once.
func (a *ClaudeAgent) Invoke(ctx context.Context, content string, buildPrompt driven.PromptFunc) (string, error) {
	path, err := stageContent(content)
	if err != nil {
		return "", &domain.AgentError{Kind: domain.AgentLaunchFailure, Err: err}
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("Failed to remove staged content file %s: %v", path, rmErr)
		}
	}()

	prompt := buildPrompt(services.FileReference(path))

	args := make([]string, 0, 6)
	if a.cfg.Model != "" {
		args = append(args, "--model", a.cfg.Model)
	}
	args = append(args, "-p", prompt)
	// Fresh session per invocation; no state is shared between calls.
	args = append(args, "--session-id", uuid.NewString())

	return run(ctx, a.cfg.Timeout, a.cfg.Command, args, "")
}

// stageContent writes the prepared document content to a uniquely named temp
// file readable only by the current user. Unique names keep concurrent
// invocations from colliding.
func stageContent(content string) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("doctag-doc-%s.txt", uuid.NewString()))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("stage document content: %w", err)
	}
	return path, nil
}
