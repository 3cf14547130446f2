package agent

import (
	"context"
	"fmt"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
	"github.com/custodia-labs/doctag-cli/internal/core/services"
)

// Ensure CodexAgent implements the interface.
var _ driven.Agent = (*CodexAgent)(nil)

// CodexAgent invokes a Codex-style CLI. Document content is embedded inline
// in the prompt between delimiter tags, and the whole prompt is delivered on
// stdin to avoid command-line length limits.
type CodexAgent struct {
	cfg domain.AgentSettings
}

// NewCodexAgent creates a Codex-style agent adapter.
func NewCodexAgent(cfg domain.AgentSettings) *CodexAgent {
	return &CodexAgent{cfg: cfg}
}

// Name identifies the backend.
func (a *CodexAgent) Name() string {
	return string(domain.AgentCodex)
}

// MaxContentChars is the content budget for this backend.
func (a *CodexAgent) MaxContentChars() int {
	return a.cfg.MaxContentChars
}

// Invoke builds the prompt with the content inlined and runs the CLI once,
// prompt on stdin.
func (a *CodexAgent) Invoke(ctx context.Context, content string, buildPrompt driven.PromptFunc) (string, error) {
	prompt := buildPrompt(services.InlineReference(content))

	args := []string{"exec"}
	if a.cfg.Model != "" {
		args = append(args, "--model", a.cfg.Model)
	}
	if a.cfg.ReasoningEffort != "" {
		args = append(args, "--config", fmt.Sprintf("model_reasoning_effort=%q", a.cfg.ReasoningEffort))
	}
	// "-" makes the CLI read the prompt from stdin.
	args = append(args, "-")

	return run(ctx, a.cfg.Timeout, a.cfg.Command, args, prompt)
}
