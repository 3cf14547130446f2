package driving

import (
	"context"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// AnalyzeOptions configure one analysis run.
type AnalyzeOptions struct {
	// DocumentID analyzes a single specific document instead of the inbox.
	DocumentID *int

	// Limit bounds how many documents are attempted in this run; 0 means
	// no limit. The count includes documents whose analysis fails.
	Limit int

	// Force includes documents that already carry the processing marker.
	Force bool
}

// ApplyOptions configure how suggestions are written back to the store.
type ApplyOptions struct {
	// RemoveInboxTags drops the document's inbox tags on apply. By
	// default inbox tags are preserved so the operator can review
	// applied documents in place.
	RemoveInboxTags bool
}

// RunReport summarises one analysis run.
type RunReport struct {
	// Suggestions holds one record per attempted document, in processing
	// order, including failures.
	Suggestions []domain.Suggestion

	// Per-status counts.
	Succeeded     int
	ParseFailures int
	AgentFailures int
	Skipped       int
}

// Attempted is the total number of documents processed in the run.
func (r *RunReport) Attempted() int {
	return len(r.Suggestions)
}

// ApplyFailure records one document whose update was rejected by the store.
type ApplyFailure struct {
	DocumentID int
	Message    string
}

// ApplyReport summarises one apply pass.
type ApplyReport struct {
	// Applied is the number of documents successfully updated and marked.
	Applied int

	// Skipped is the number of suggestions not applied because their
	// analysis did not succeed.
	Skipped int

	// CorrespondentsCreated is the number of new correspondents minted.
	CorrespondentsCreated int

	// Failures lists documents whose update failed; a failure never
	// blocks the rest of the batch.
	Failures []ApplyFailure
}

// Analyzer coordinates document categorization against the store and the
// configured agent backend.
type Analyzer interface {
	// ListInbox returns the documents currently awaiting categorization.
	ListInbox(ctx context.Context) ([]domain.Document, error)

	// Analyze runs the categorization engine over eligible documents and
	// returns the reviewable suggestion records. Per-document failures
	// are recorded in the report, not returned as errors.
	Analyze(ctx context.Context, opts AnalyzeOptions) (*RunReport, error)

	// Apply writes successful suggestions back to the store: pending
	// correspondents are created, metadata is updated in a single call
	// per document, and the processing marker is added last.
	Apply(ctx context.Context, suggestions []domain.Suggestion, opts ApplyOptions) (*ApplyReport, error)
}
