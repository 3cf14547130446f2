package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driving"
)

type recordedUpdate struct {
	docID  int
	update driven.DocumentUpdate
}

type mockDocumentStore struct {
	inbox          []domain.Document
	docs           map[int]*domain.Document
	tags           []domain.Entity
	correspondents []domain.Entity
	types          []domain.Entity
	paths          []domain.Entity

	listInboxExclude *int
	listInboxCalls   int
	createdNames     []string
	createErr        error
	ensureTagErr     error
	updates          []recordedUpdate
	updateErr        map[int]error
	tagAdds          map[int][]int
	nextID           int

	// calls is an ordered log of mutating operations, used to assert
	// that the processing marker is the last side effect per document.
	calls []string
}

func newMockStore() *mockDocumentStore {
	return &mockDocumentStore{
		docs:      make(map[int]*domain.Document),
		updateErr: make(map[int]error),
		tagAdds:   make(map[int][]int),
		nextID:    1000,
	}
}

func (m *mockDocumentStore) TestConnection(_ context.Context) error { return nil }

func (m *mockDocumentStore) ListInbox(_ context.Context, excludeTagID *int) ([]domain.Document, error) {
	m.listInboxCalls++
	m.listInboxExclude = excludeTagID
	if excludeTagID == nil {
		return m.inbox, nil
	}
	var out []domain.Document
	for _, d := range m.inbox {
		if !d.HasTag(*excludeTagID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDocumentStore) GetDocument(_ context.Context, id int) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentStore) ListTags(_ context.Context) ([]domain.Entity, error) {
	return m.tags, nil
}

func (m *mockDocumentStore) ListCorrespondents(_ context.Context) ([]domain.Entity, error) {
	return m.correspondents, nil
}

func (m *mockDocumentStore) ListDocumentTypes(_ context.Context) ([]domain.Entity, error) {
	return m.types, nil
}

func (m *mockDocumentStore) ListStoragePaths(_ context.Context) ([]domain.Entity, error) {
	return m.paths, nil
}

func (m *mockDocumentStore) CreateCorrespondent(_ context.Context, name string) (*domain.Entity, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdNames = append(m.createdNames, name)
	m.calls = append(m.calls, "create:"+name)
	m.nextID++
	entity := domain.Entity{ID: m.nextID, Name: name}
	m.correspondents = append(m.correspondents, entity)
	return &entity, nil
}

func (m *mockDocumentStore) EnsureTag(_ context.Context, name string) (*domain.Entity, error) {
	if m.ensureTagErr != nil {
		return nil, m.ensureTagErr
	}
	for _, t := range m.tags {
		if t.Name == name {
			return &t, nil
		}
	}
	m.nextID++
	entity := domain.Entity{ID: m.nextID, Name: name}
	m.tags = append(m.tags, entity)
	return &entity, nil
}

func (m *mockDocumentStore) UpdateDocument(_ context.Context, id int, update driven.DocumentUpdate) error {
	if err := m.updateErr[id]; err != nil {
		return err
	}
	m.updates = append(m.updates, recordedUpdate{docID: id, update: update})
	m.calls = append(m.calls, fmt.Sprintf("update:%d", id))
	return nil
}

func (m *mockDocumentStore) AddTags(_ context.Context, id int, tagIDs []int) error {
	m.tagAdds[id] = append(m.tagAdds[id], tagIDs...)
	m.calls = append(m.calls, fmt.Sprintf("addtags:%d", id))
	return nil
}

var _ driven.DocumentStore = (*mockDocumentStore)(nil)

type agentResult struct {
	raw string
	err error
}

type mockAgent struct {
	results  []agentResult
	calls    int
	maxChars int
	prompts  []string
	contents []string
}

func (a *mockAgent) Invoke(_ context.Context, content string, buildPrompt driven.PromptFunc) (string, error) {
	a.contents = append(a.contents, content)
	a.prompts = append(a.prompts, buildPrompt(content))
	i := a.calls
	a.calls++
	if i >= len(a.results) {
		i = len(a.results) - 1
	}
	return a.results[i].raw, a.results[i].err
}

func (a *mockAgent) Name() string { return "mock" }

func (a *mockAgent) MaxContentChars() int {
	if a.maxChars == 0 {
		return domain.DefaultMaxContentChars
	}
	return a.maxChars
}

var _ driven.Agent = (*mockAgent)(nil)

func testSettings() domain.Settings {
	s := domain.NewSettings(domain.AgentClaude)
	s.Paperless = domain.PaperlessSettings{URL: "http://paperless.local:8000", Token: "token"}
	return s
}

// newTestService wires a service over the mocks with an instant sleep so
// retry tests do not wait out real backoff.
func newTestService(store *mockDocumentStore, agent driven.Agent, settings domain.Settings) (*AnalyzeService, *[]time.Duration) {
	svc := NewAnalyzeService(store, agent, settings)
	var slept []time.Duration
	svc.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return svc, &slept
}

func seedTaxonomy(store *mockDocumentStore) {
	store.tags = []domain.Entity{
		{ID: 1, Name: "inbox", IsInbox: true},
		{ID: 2, Name: "financial"},
		{ID: 3, Name: "utilities"},
	}
	store.correspondents = []domain.Entity{{ID: 10, Name: "Acme Corp"}}
	store.types = []domain.Entity{{ID: 20, Name: "Invoice"}, {ID: 21, Name: "Receipt"}}
	store.paths = []domain.Entity{{ID: 30, Name: "Finance"}}
}

const electricityResponse = `TITLE: Electricity Bill March 2024
TYPE: Invoice
TAGS: financial, utilities
CORRESPONDENT: NEW: Amber Electric
STORAGE_PATH: Finance`

func TestAnalyze_EndToEnd(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{{
		ID:      42,
		Title:   "scan_20240315",
		Content: "Amber Electric tax invoice for electricity usage, March 2024.",
		Tags:    []int{1},
	}}

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Suggestions, 1)

	sg := report.Suggestions[0]
	assert.Equal(t, 42, sg.DocumentID)
	assert.Equal(t, domain.StatusSuccess, sg.Status)
	assert.Equal(t, "scan_20240315", sg.CurrentTitle)
	assert.Equal(t, "Electricity Bill March 2024", sg.SuggestedTitle)
	require.NotNil(t, sg.SuggestedType)
	assert.Equal(t, 20, *sg.SuggestedType)
	assert.Equal(t, []int{2, 3}, sg.SuggestedTags)
	assert.True(t, sg.Correspondent.CreateNew)
	assert.Equal(t, "Amber Electric", sg.Correspondent.Name)
	require.NotNil(t, sg.SuggestedStoragePath)
	assert.Equal(t, 30, *sg.SuggestedStoragePath)
	assert.Equal(t, electricityResponse, sg.RawResponse)

	// Analyze never writes to the store.
	assert.Empty(t, store.updates)
	assert.Empty(t, store.tagAdds)
}

func TestAnalyze_ExcludesMarkedDocuments(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.tags = append(store.tags, domain.Entity{ID: 99, Name: domain.DefaultProcessedTag})
	store.inbox = []domain.Document{
		{ID: 1, Content: "fresh document", Tags: []int{1}},
		{ID: 2, Content: "already processed", Tags: []int{1, 99}},
	}

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{})
	require.NoError(t, err)

	require.NotNil(t, store.listInboxExclude)
	assert.Equal(t, 99, *store.listInboxExclude)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, 1, report.Suggestions[0].DocumentID)
}

func TestAnalyze_ForceIncludesMarkedDocuments(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.tags = append(store.tags, domain.Entity{ID: 99, Name: domain.DefaultProcessedTag})
	store.inbox = []domain.Document{
		{ID: 1, Content: "fresh", Tags: []int{1}},
		{ID: 2, Content: "processed", Tags: []int{1, 99}},
	}

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{Force: true})
	require.NoError(t, err)

	assert.Nil(t, store.listInboxExclude)
	assert.Len(t, report.Suggestions, 2)
}

func TestAnalyze_SingleDocumentBypassesInbox(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.docs[7] = &domain.Document{ID: 7, Content: "some content", Tags: []int{99}}

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	id := 7
	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{DocumentID: &id})
	require.NoError(t, err)

	assert.Zero(t, store.listInboxCalls)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, 7, report.Suggestions[0].DocumentID)
}

func TestAnalyze_SingleDocumentNotFound(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	id := 404
	_, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{DocumentID: &id})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalyze_LimitBoundsAttempts(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{
		{ID: 1, Content: "a", Tags: []int{1}},
		{ID: 2, Content: "b", Tags: []int{1}},
		{ID: 3, Content: "c", Tags: []int{1}},
	}

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, report.Suggestions, 2)
}

func TestAnalyze_EmptyContentSkipped(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{{ID: 5, Content: "   \n\t  ", Tags: []int{1}}}

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, agent.calls)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, domain.StatusSkipped, report.Suggestions[0].Status)
}

func TestAnalyze_AgentFailureRetriedThenRecorded(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{
		{ID: 7, Content: "stubborn document", Tags: []int{1}},
		{ID: 8, Content: "fine document", Tags: []int{1}},
	}

	timeout := &domain.AgentError{Kind: domain.AgentTimeout, Err: context.DeadlineExceeded}
	agent := &mockAgent{results: []agentResult{
		{err: timeout},
		{err: timeout},
		{err: timeout},
		{raw: electricityResponse},
	}}
	svc, slept := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.AgentFailures)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 4, agent.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)

	require.Len(t, report.Suggestions, 2)
	failed := report.Suggestions[0]
	assert.Equal(t, 7, failed.DocumentID)
	assert.Equal(t, domain.StatusAgentFailure, failed.Status)
	assert.NotEmpty(t, failed.ErrorMessage)
	assert.Equal(t, domain.StatusSuccess, report.Suggestions[1].Status)

	// A failed document is never written back.
	assert.Empty(t, store.updates)
}

func TestAnalyze_NonAgentErrorNotRetried(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{{ID: 1, Content: "doc", Tags: []int{1}}}

	agent := &mockAgent{results: []agentResult{{err: errors.New("boom")}}}
	svc, slept := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, agent.calls)
	assert.Empty(t, *slept)
	assert.Equal(t, 1, report.AgentFailures)
}

func TestAnalyze_ParseFailureNotRetried(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{{ID: 1, Content: "doc", Tags: []int{1}}}

	agent := &mockAgent{results: []agentResult{{raw: "I could not categorize this document."}}}
	svc, _ := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, agent.calls)
	assert.Equal(t, 1, report.ParseFailures)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, domain.StatusParseFailure, report.Suggestions[0].Status)
	assert.NotEmpty(t, report.Suggestions[0].RawResponse)
}

func TestAnalyze_ContentTruncatedToAgentLimit(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	long := ""
	for i := 0; i < 100; i++ {
		long += "electricity usage statement line\n"
	}
	store.inbox = []domain.Document{{ID: 1, Content: long, Tags: []int{1}}}

	agent := &mockAgent{maxChars: 200, results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	_, err := svc.Analyze(context.Background(), driving.AnalyzeOptions{})
	require.NoError(t, err)

	require.Len(t, agent.contents, 1)
	assert.LessOrEqual(t, len([]rune(agent.contents[0])), 200+len(truncationNotice(200)))
	assert.Contains(t, agent.contents[0], "truncated")
}

func truncationNotice(limit int) string {
	return fmt.Sprintf("\n\n[Content truncated at %d characters]", limit)
}

// abortingAgent cancels the run context from inside its first invocation,
// simulating an operator interrupt while the subprocess is in flight.
type abortingAgent struct {
	cancel context.CancelFunc
	calls  int
}

func (a *abortingAgent) Invoke(ctx context.Context, _ string, _ driven.PromptFunc) (string, error) {
	a.calls++
	a.cancel()
	return "", ctx.Err()
}

func (a *abortingAgent) Name() string         { return "mock" }
func (a *abortingAgent) MaxContentChars() int { return domain.DefaultMaxContentChars }

func TestAnalyze_AbortMidInvocationNotRecordedAsAgentFailure(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{
		{ID: 1, Content: "a", Tags: []int{1}},
		{ID: 2, Content: "b", Tags: []int{1}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	agent := &abortingAgent{cancel: cancel}
	svc, slept := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(ctx, driving.AnalyzeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// No retry of the cancelled invocation, and the interrupted document
	// is recorded as skipped so the next run picks it up.
	assert.Equal(t, 1, agent.calls)
	assert.Empty(t, *slept)
	assert.Zero(t, report.AgentFailures)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, domain.StatusSkipped, report.Suggestions[0].Status)
}

func TestAnalyze_CancelledContextStopsBatch(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{
		{ID: 1, Content: "a", Tags: []int{1}},
		{ID: 2, Content: "b", Tags: []int{1}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agent := &mockAgent{results: []agentResult{{raw: electricityResponse}}}
	svc, _ := newTestService(store, agent, testSettings())

	report, err := svc.Analyze(ctx, driving.AnalyzeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Suggestions)
}

func successSuggestion(docID int) domain.Suggestion {
	typeID := 20
	pathID := 30
	title := "Electricity Bill March 2024"
	return domain.Suggestion{
		DocumentID:     docID,
		CurrentTags:    []int{1},
		SuggestedTitle: title,
		SuggestedType:  &typeID,
		SuggestedTags:  []int{2, 3},
		Correspondent: domain.CorrespondentResolution{
			Name:      "Amber Electric",
			CreateNew: true,
		},
		SuggestedStoragePath: &pathID,
		Status:               domain.StatusSuccess,
	}
}

func TestApply_FullFlow(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)

	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	report, err := svc.Apply(context.Background(), []domain.Suggestion{successSuggestion(42)}, driving.ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 1, report.CorrespondentsCreated)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"Amber Electric"}, store.createdNames)

	require.Len(t, store.updates, 1)
	up := store.updates[0]
	assert.Equal(t, 42, up.docID)
	require.NotNil(t, up.update.Title)
	assert.Equal(t, "Electricity Bill March 2024", *up.update.Title)
	require.NotNil(t, up.update.Correspondent)
	require.NotNil(t, up.update.DocumentType)
	assert.Equal(t, 20, *up.update.DocumentType)

	// Inbox tag preserved alongside the suggested tags.
	assert.ElementsMatch(t, []int{1, 2, 3}, up.update.Tags)

	// Marker added after the metadata update, and not as part of it.
	require.Len(t, store.calls, 3)
	assert.Equal(t, "create:Amber Electric", store.calls[0])
	assert.Equal(t, "update:42", store.calls[1])
	assert.Equal(t, "addtags:42", store.calls[2])
}

func TestApply_RemoveInboxTags(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)

	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	_, err := svc.Apply(context.Background(), []domain.Suggestion{successSuggestion(42)},
		driving.ApplyOptions{RemoveInboxTags: true})
	require.NoError(t, err)

	require.Len(t, store.updates, 1)
	assert.ElementsMatch(t, []int{2, 3}, store.updates[0].update.Tags)
}

func TestApply_SkipsFailedSuggestions(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)

	failed := domain.Suggestion{DocumentID: 7, Status: domain.StatusAgentFailure}
	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	report, err := svc.Apply(context.Background(), []domain.Suggestion{failed, successSuggestion(42)}, driving.ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, store.updates, 1)
	assert.Equal(t, 42, store.updates[0].docID)
}

func TestApply_ExistingCorrespondentNotRecreated(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	// A previous run already minted the correspondent; the resolution
	// still says CreateNew because this batch resolved before that.
	store.correspondents = append(store.correspondents, domain.Entity{ID: 55, Name: "Amber Electric"})

	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	report, err := svc.Apply(context.Background(), []domain.Suggestion{successSuggestion(42)}, driving.ApplyOptions{})
	require.NoError(t, err)

	assert.Zero(t, report.CorrespondentsCreated)
	assert.Empty(t, store.createdNames)
	require.Len(t, store.updates, 1)
	require.NotNil(t, store.updates[0].update.Correspondent)
	assert.Equal(t, 55, *store.updates[0].update.Correspondent)
}

func TestApply_CorrespondentCreatedOncePerBatch(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)

	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	report, err := svc.Apply(context.Background(),
		[]domain.Suggestion{successSuggestion(42), successSuggestion(43)}, driving.ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 1, report.CorrespondentsCreated)
	assert.Equal(t, []string{"Amber Electric"}, store.createdNames)

	// Both documents bind the same new correspondent ID.
	require.Len(t, store.updates, 2)
	assert.Equal(t, *store.updates[0].update.Correspondent, *store.updates[1].update.Correspondent)
}

func TestApply_FailureRecordedBatchContinues(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.updateErr[42] = errors.New("server error")

	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	report, err := svc.Apply(context.Background(),
		[]domain.Suggestion{successSuggestion(42), successSuggestion(43)}, driving.ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 42, report.Failures[0].DocumentID)
	assert.Contains(t, report.Failures[0].Message, "server error")

	// The failed document never gets the marker; the other one does.
	assert.Empty(t, store.tagAdds[42])
	assert.Len(t, store.tagAdds[43], 1)
}

func TestApply_EnsureMarkerFailureIsFatal(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.ensureTagErr = errors.New("unauthorized")

	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	_, err := svc.Apply(context.Background(), []domain.Suggestion{successSuggestion(42)}, driving.ApplyOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marker")
	assert.Empty(t, store.updates)
}

func TestListInbox(t *testing.T) {
	store := newMockStore()
	seedTaxonomy(store)
	store.inbox = []domain.Document{{ID: 1, Tags: []int{1}}, {ID: 2, Tags: []int{1}}}

	svc, _ := newTestService(store, &mockAgent{}, testSettings())

	docs, err := svc.ListInbox(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Nil(t, store.listInboxExclude)
}
