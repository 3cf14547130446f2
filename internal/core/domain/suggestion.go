package domain

// AnalysisStatus describes the outcome of analyzing one document.
type AnalysisStatus string

// Available analysis statuses.
const (
	// StatusSuccess means the agent answered, the response parsed, and
	// entities were resolved.
	StatusSuccess AnalysisStatus = "success"

	// StatusParseFailure means the agent answered but no usable
	// suggestion could be extracted.
	StatusParseFailure AnalysisStatus = "parse_failure"

	// StatusAgentFailure means the agent subprocess failed after all
	// retries (timeout, nonzero exit or launch failure).
	StatusAgentFailure AnalysisStatus = "agent_failure"

	// StatusSkipped means the document was not analyzed at all, e.g.
	// because it has no OCR content.
	StatusSkipped AnalysisStatus = "skipped"
)

// String returns the string representation.
func (s AnalysisStatus) String() string {
	return string(s)
}

// ParsedSuggestion is the structured form of an agent response before entity
// resolution. All values are free text as produced by the agent.
type ParsedSuggestion struct {
	// Title is the suggested title. Always present after a successful parse.
	Title string

	// DocumentType is the suggested type name, "" when the agent answered None.
	DocumentType string

	// Tags are the suggested tag names. Empty when the agent answered None.
	Tags []string

	// Correspondent is the suggested correspondent name, "" for None.
	Correspondent string

	// CorrespondentIsNew is true when the agent marked the correspondent
	// with the NEW: prefix.
	CorrespondentIsNew bool

	// StoragePath is the suggested storage path name, "" for None.
	StoragePath string
}

// CorrespondentResolution describes how a suggested correspondent resolved.
type CorrespondentResolution struct {
	// ID is the bound existing correspondent, nil when unmatched.
	ID *int `json:"id"`

	// Name is the resolved or proposed name.
	Name string `json:"name,omitempty"`

	// CreateNew is true when no existing correspondent matched and the
	// resolver decided a new one should be created on apply.
	CreateNew bool `json:"create_new"`
}

// IsNone reports whether the resolution carries neither a binding nor a
// creation request.
func (r CorrespondentResolution) IsNone() bool {
	return r.ID == nil && !r.CreateNew
}

// Suggestion is the reviewable categorization record for one document. It
// captures the document's current metadata alongside the resolved proposal
// and the raw agent text for audit.
type Suggestion struct {
	DocumentID   int    `json:"document_id"`
	CurrentTitle string `json:"current_title"`

	CurrentType     *int   `json:"current_type"`
	CurrentTypeName string `json:"current_type_name,omitempty"`

	CurrentTags     []int    `json:"current_tags"`
	CurrentTagNames []string `json:"current_tag_names,omitempty"`

	CurrentCorrespondent     *int   `json:"current_correspondent"`
	CurrentCorrespondentName string `json:"current_correspondent_name,omitempty"`

	CurrentStoragePath     *int   `json:"current_storage_path"`
	CurrentStoragePathName string `json:"current_storage_path_name,omitempty"`

	// SuggestedTitle is the proposed title, "" when none was suggested.
	SuggestedTitle string `json:"suggested_title,omitempty"`

	// SuggestedType is the resolved document type, nil for none.
	SuggestedType     *int   `json:"suggested_type"`
	SuggestedTypeName string `json:"suggested_type_name,omitempty"`

	// SuggestedTags are the resolved tag IDs. Unmatched suggested tags
	// are dropped during resolution, never created.
	SuggestedTags     []int    `json:"suggested_tags"`
	SuggestedTagNames []string `json:"suggested_tag_names,omitempty"`

	// Correspondent is the correspondent resolution: an existing binding,
	// a pending creation, or none.
	Correspondent CorrespondentResolution `json:"correspondent"`

	// SuggestedStoragePath is the resolved storage path, nil for none.
	SuggestedStoragePath     *int   `json:"suggested_storage_path"`
	SuggestedStoragePathName string `json:"suggested_storage_path_name,omitempty"`

	// RawResponse is the unmodified agent output, kept for audit.
	RawResponse string `json:"raw_response,omitempty"`

	Status AnalysisStatus `json:"status"`

	// ErrorMessage describes the failure for non-success statuses.
	ErrorMessage string `json:"error_message,omitempty"`
}
