package agent

import (
	"fmt"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
)

// New creates the agent adapter for the configured backend. Backend
// selection is configuration, not a runtime decision: new backends add a
// case here, not an inheritance layer.
func New(cfg domain.AgentSettings) (driven.Agent, error) {
	switch cfg.Provider {
	case domain.AgentClaude:
		return NewClaudeAgent(cfg), nil
	case domain.AgentCodex:
		return NewCodexAgent(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unsupported agent provider %q", domain.ErrInvalidConfig, cfg.Provider)
	}
}
