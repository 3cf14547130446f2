package driven

import "context"

// PromptFunc renders the categorization prompt for a backend's content
// reference. The reference tells the agent where to find the document
// content: a staged temp file path for file-reference backends, or the
// content itself embedded in a delimited block for inline backends.
//
// Keeping the prompt a pure function of the reference lets the prompt
// builder stay deterministic while each backend controls content placement.
type PromptFunc func(contentRef string) string

// Agent invokes an external CLI agent as a black-box subprocess.
//
// Each invocation is a single independent call; no state is shared between
// calls. Implementations enforce the configured timeout themselves, kill the
// subprocess on expiry, and guarantee removal of any staged temp file on
// every exit path. Failures are reported as *domain.AgentError.
type Agent interface {
	// Invoke stages content as the backend requires, submits the prompt
	// produced by buildPrompt, and returns the agent's raw output.
	Invoke(ctx context.Context, content string, buildPrompt PromptFunc) (string, error)

	// Name identifies the backend for logs and reports.
	Name() string

	// MaxContentChars is the content budget for this backend. Document
	// content is truncated to this length before staging.
	MaxContentChars() int
}
