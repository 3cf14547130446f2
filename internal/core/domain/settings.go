package domain

import (
	"fmt"
	"strings"
	"time"
)

// AgentProvider identifies an external CLI agent backend.
type AgentProvider string

// Available agent providers.
const (
	// AgentClaude is the Claude-style CLI: prompt as an argument, document
	// content staged through a temp file referenced in the prompt.
	AgentClaude AgentProvider = "claude"

	// AgentCodex is the Codex-style CLI: prompt on stdin with the document
	// content embedded inline.
	AgentCodex AgentProvider = "codex"
)

// IsValid returns true if the agent provider is recognised.
func (p AgentProvider) IsValid() bool {
	switch p {
	case AgentClaude, AgentCodex:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AgentProvider) String() string {
	return string(p)
}

// Default configuration values.
const (
	DefaultAgentTimeout    = 120 * time.Second
	DefaultMaxContentChars = 2000
	DefaultAgentRetries    = 3
	DefaultRetryBackoff    = time.Second
	DefaultProcessedTag    = "doctag-processed"
	DefaultClaudeCommand   = "claude"
	DefaultClaudeModel     = "sonnet"
	DefaultCodexCommand    = "codex"
	DefaultCodexModel      = "gpt-5"
	DefaultCodexReasoning  = "minimal"
)

// PaperlessSettings configure the document store client.
type PaperlessSettings struct {
	// URL is the base URL of the document store, without a trailing slash.
	URL string

	// Token is the API token used for authentication.
	Token string
}

// AgentSettings configure one CLI agent backend.
type AgentSettings struct {
	// Provider selects the backend.
	Provider AgentProvider

	// Command is the executable name or path.
	Command string

	// Model is an optional model override passed to the CLI.
	Model string

	// ReasoningEffort is an optional reasoning-effort parameter; only the
	// codex backend understands it.
	ReasoningEffort string

	// Timeout bounds a single agent invocation.
	Timeout time.Duration

	// MaxContentChars bounds how much document content is sent to the agent.
	MaxContentChars int
}

// Settings is the immutable process-wide configuration, loaded once at
// startup and passed to each component at construction.
type Settings struct {
	Paperless PaperlessSettings
	Agent     AgentSettings

	// ProcessedTag is the well-known tag name marking analyzed documents.
	// Its presence on a document is the only cross-run state the engine
	// relies on.
	ProcessedTag string

	// AgentRetries is the number of attempts per document for failed
	// agent invocations.
	AgentRetries int

	// RetryBackoff is the base delay between agent retries; attempt n
	// waits RetryBackoff * 2^n.
	RetryBackoff time.Duration

	// MatchThreshold is the similarity floor for fuzzy entity matching,
	// in [0,1]. Names below the floor do not bind.
	MatchThreshold float64

	// AllowCreateCorrespondents permits minting new correspondents for
	// unmatched suggestions. Tags, types and storage paths are never
	// created regardless of this setting.
	AllowCreateCorrespondents bool
}

// DefaultMatchThreshold is the fuzzy matching similarity floor.
// 0.80 accepts small spelling and punctuation drift ("Acme Corp." vs
// "Acme Corp") while rejecting unrelated names.
const DefaultMatchThreshold = 0.80

// NewSettings returns settings populated with defaults for the given provider.
func NewSettings(provider AgentProvider) Settings {
	agent := AgentSettings{
		Provider:        provider,
		Timeout:         DefaultAgentTimeout,
		MaxContentChars: DefaultMaxContentChars,
	}
	switch provider {
	case AgentCodex:
		agent.Command = DefaultCodexCommand
		agent.Model = DefaultCodexModel
		agent.ReasoningEffort = DefaultCodexReasoning
	default:
		agent.Command = DefaultClaudeCommand
		agent.Model = DefaultClaudeModel
	}

	return Settings{
		Agent:                     agent,
		ProcessedTag:              DefaultProcessedTag,
		AgentRetries:              DefaultAgentRetries,
		RetryBackoff:              DefaultRetryBackoff,
		MatchThreshold:            DefaultMatchThreshold,
		AllowCreateCorrespondents: true,
	}
}

// Validate checks that all required settings are present and coherent.
// A validation failure is fatal: it aborts before any document is touched.
func (s *Settings) Validate() error {
	if s.Paperless.URL == "" {
		return fmt.Errorf("%w: paperless URL is required", ErrInvalidConfig)
	}
	if strings.HasSuffix(s.Paperless.URL, "/") {
		return fmt.Errorf("%w: paperless URL must not end with a slash", ErrInvalidConfig)
	}
	if s.Paperless.Token == "" {
		return fmt.Errorf("%w: paperless API token is required", ErrInvalidConfig)
	}
	if !s.Agent.Provider.IsValid() {
		return fmt.Errorf("%w: unknown agent provider %q", ErrInvalidConfig, s.Agent.Provider)
	}
	if s.Agent.Command == "" {
		return fmt.Errorf("%w: agent command is required", ErrInvalidConfig)
	}
	if s.Agent.Timeout <= 0 {
		return fmt.Errorf("%w: agent timeout must be positive", ErrInvalidConfig)
	}
	if s.Agent.MaxContentChars <= 0 {
		return fmt.Errorf("%w: max content chars must be positive", ErrInvalidConfig)
	}
	if s.ProcessedTag == "" {
		return fmt.Errorf("%w: processed tag name is required", ErrInvalidConfig)
	}
	if s.AgentRetries < 1 {
		return fmt.Errorf("%w: agent retries must be at least 1", ErrInvalidConfig)
	}
	if s.MatchThreshold < 0 || s.MatchThreshold > 1 {
		return fmt.Errorf("%w: match threshold must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}
