package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driving"
	"github.com/custodia-labs/doctag-cli/internal/logger"
)

// Ensure AnalyzeService implements the interface.
var _ driving.Analyzer = (*AnalyzeService)(nil)

// AnalyzeService is the categorization engine. It sequences prompt building,
// agent invocation, response parsing and entity resolution per document,
// enforces idempotency through the processing-marker tag, and applies
// reviewed suggestions back to the store.
type AnalyzeService struct {
	store    driven.DocumentStore
	agent    driven.Agent
	resolver *Resolver
	settings domain.Settings

	// sleep is replaceable in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAnalyzeService creates the categorization engine.
func NewAnalyzeService(store driven.DocumentStore, agent driven.Agent, settings domain.Settings) *AnalyzeService {
	return &AnalyzeService{
		store:    store,
		agent:    agent,
		resolver: NewResolver(settings.MatchThreshold, settings.AllowCreateCorrespondents),
		settings: settings,
		sleep:    sleepCtx,
	}
}

// ListInbox returns the documents currently awaiting categorization.
func (s *AnalyzeService) ListInbox(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.store.ListInbox(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return docs, nil
}

// Analyze runs the engine over eligible documents. Each document flows
// through prompt building, agent invocation (with bounded retries), parsing
// and resolution; a single document's failure never aborts the batch.
func (s *AnalyzeService) Analyze(ctx context.Context, opts driving.AnalyzeOptions) (*driving.RunReport, error) {
	tax, err := s.fetchTaxonomy(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.selectDocuments(ctx, tax, opts)
	if err != nil {
		return nil, err
	}

	logger.Section("Analysis")
	logger.Info("Analyzing %d document(s) with %s agent", len(docs), s.agent.Name())

	report := &driving.RunReport{}
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		logger.Debug("Document %d (%d/%d)", docs[i].ID, i+1, len(docs))
		suggestion := s.analyzeOne(ctx, &docs[i], tax)
		report.Suggestions = append(report.Suggestions, suggestion)

		switch suggestion.Status {
		case domain.StatusSuccess:
			report.Succeeded++
		case domain.StatusParseFailure:
			report.ParseFailures++
		case domain.StatusAgentFailure:
			report.AgentFailures++
		case domain.StatusSkipped:
			report.Skipped++
		}
	}

	return report, nil
}

// fetchTaxonomy takes the run's taxonomy snapshot. The snapshot is frozen
// for the whole run: all matching binds against it and nothing refreshes it
// mid-batch.
func (s *AnalyzeService) fetchTaxonomy(ctx context.Context) (domain.TaxonomySnapshot, error) {
	var tax domain.TaxonomySnapshot
	var err error

	if tax.Tags, err = s.store.ListTags(ctx); err != nil {
		return tax, fmt.Errorf("list tags: %w", err)
	}
	if tax.Correspondents, err = s.store.ListCorrespondents(ctx); err != nil {
		return tax, fmt.Errorf("list correspondents: %w", err)
	}
	if tax.DocumentTypes, err = s.store.ListDocumentTypes(ctx); err != nil {
		return tax, fmt.Errorf("list document types: %w", err)
	}
	if tax.StoragePaths, err = s.store.ListStoragePaths(ctx); err != nil {
		return tax, fmt.Errorf("list storage paths: %w", err)
	}

	logger.Debug("Taxonomy: %d tags, %d correspondents, %d types, %d storage paths",
		len(tax.Tags), len(tax.Correspondents), len(tax.DocumentTypes), len(tax.StoragePaths))
	return tax, nil
}

// selectDocuments picks the documents eligible for this run. A document is
// eligible when it sits in the inbox and does not already carry the
// processing marker; --id and --force bypass the marker gate.
func (s *AnalyzeService) selectDocuments(ctx context.Context, tax domain.TaxonomySnapshot, opts driving.AnalyzeOptions) ([]domain.Document, error) {
	if opts.DocumentID != nil {
		doc, err := s.store.GetDocument(ctx, *opts.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("get document %d: %w", *opts.DocumentID, err)
		}
		return []domain.Document{*doc}, nil
	}

	var excludeTagID *int
	if !opts.Force {
		if marker := tax.FindTag(s.settings.ProcessedTag); marker != nil {
			excludeTagID = &marker.ID
		}
	}

	docs, err := s.store.ListInbox(ctx, excludeTagID)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}

	// The limit bounds documents attempted, counting failures; it never
	// truncates mid-document.
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

// analyzeOne runs the full pipeline for a single document. Failures are
// recorded in the returned suggestion's status, never raised.
func (s *AnalyzeService) analyzeOne(ctx context.Context, doc *domain.Document, tax domain.TaxonomySnapshot) domain.Suggestion {
	base := s.currentState(doc, tax)

	if strings.TrimSpace(doc.Content) == "" {
		base.Status = domain.StatusSkipped
		base.ErrorMessage = domain.ErrNoContent.Error()
		return base
	}

	content := PrepareContent(doc.Content, s.agent.MaxContentChars())
	buildPrompt := func(contentRef string) string {
		return BuildPrompt(contentRef, tax)
	}

	raw, err := s.invokeWithRetry(ctx, content, buildPrompt)
	if err != nil {
		// An operator abort mid-invocation is not a failure of this
		// document; the next run picks it up again.
		if ctx.Err() != nil {
			base.Status = domain.StatusSkipped
			base.ErrorMessage = err.Error()
			return base
		}
		logger.Warn("Document %d: agent failure: %v", doc.ID, err)
		base.Status = domain.StatusAgentFailure
		base.ErrorMessage = err.Error()
		return base
	}
	base.RawResponse = raw

	parsed, err := ParseResponse(raw)
	if err != nil {
		// Retrying an agent call on ambiguous output rarely changes
		// the ambiguity, so parse failures are terminal per document.
		logger.Warn("Document %d: parse failure: %v", doc.ID, err)
		base.Status = domain.StatusParseFailure
		base.ErrorMessage = err.Error()
		return base
	}

	resolved := s.resolver.Resolve(parsed, tax)
	resolved.DocumentID = base.DocumentID
	resolved.CurrentTitle = base.CurrentTitle
	resolved.CurrentType = base.CurrentType
	resolved.CurrentTypeName = base.CurrentTypeName
	resolved.CurrentTags = base.CurrentTags
	resolved.CurrentTagNames = base.CurrentTagNames
	resolved.CurrentCorrespondent = base.CurrentCorrespondent
	resolved.CurrentCorrespondentName = base.CurrentCorrespondentName
	resolved.CurrentStoragePath = base.CurrentStoragePath
	resolved.CurrentStoragePathName = base.CurrentStoragePathName
	resolved.RawResponse = raw
	return resolved
}

// currentState captures the document's present metadata for the record.
func (s *AnalyzeService) currentState(doc *domain.Document, tax domain.TaxonomySnapshot) domain.Suggestion {
	return domain.Suggestion{
		DocumentID:               doc.ID,
		CurrentTitle:             doc.Title,
		CurrentType:              doc.DocumentType,
		CurrentTypeName:          tax.NameOf(domain.KindDocumentType, doc.DocumentType),
		CurrentTags:              doc.Tags,
		CurrentTagNames:          tax.TagNames(doc.Tags),
		CurrentCorrespondent:     doc.Correspondent,
		CurrentCorrespondentName: tax.NameOf(domain.KindCorrespondent, doc.Correspondent),
		CurrentStoragePath:       doc.StoragePath,
		CurrentStoragePathName:   tax.NameOf(domain.KindStoragePath, doc.StoragePath),
	}
}

// invokeWithRetry calls the agent with bounded retries and exponential
// backoff. Only agent failures are retried; attempt n waits backoff * 2^n.
func (s *AnalyzeService) invokeWithRetry(ctx context.Context, content string, buildPrompt driven.PromptFunc) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.settings.AgentRetries; attempt++ {
		if attempt > 0 {
			delay := s.settings.RetryBackoff << (attempt - 1)
			logger.Debug("Retrying agent invocation in %s (attempt %d/%d)",
				delay, attempt+1, s.settings.AgentRetries)
			if err := s.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		raw, err := s.agent.Invoke(ctx, content, buildPrompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var agentErr *domain.AgentError
		if !errors.As(err, &agentErr) {
			return "", err
		}
	}
	return "", lastErr
}

// Apply writes successful suggestions back to the store. Per document the
// order is: resolve or create the correspondent, send one metadata update,
// then add the processing marker. The marker is deliberately the last side
// effect so an interrupted apply is visible as "updated but not marked"
// rather than the reverse.
func (s *AnalyzeService) Apply(ctx context.Context, suggestions []domain.Suggestion, opts driving.ApplyOptions) (*driving.ApplyReport, error) {
	marker, err := s.store.EnsureTag(ctx, s.settings.ProcessedTag)
	if err != nil {
		return nil, fmt.Errorf("ensure processing marker tag: %w", err)
	}

	// Re-fetch correspondents and tags so the apply pass checks against
	// current store state before creating anything: a second run (or an
	// earlier document in this batch) may already have created the
	// correspondent.
	correspondents, err := s.store.ListCorrespondents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list correspondents: %w", err)
	}
	existing := make(map[string]int, len(correspondents))
	for _, c := range correspondents {
		existing[strings.ToLower(c.Name)] = c.ID
	}

	inboxTags, err := s.inboxTagSet(ctx)
	if err != nil {
		return nil, err
	}

	logger.Section("Apply")

	report := &driving.ApplyReport{}
	for i := range suggestions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sg := &suggestions[i]
		if sg.Status != domain.StatusSuccess {
			report.Skipped++
			continue
		}

		if err := s.applyOne(ctx, sg, marker.ID, existing, inboxTags, opts, report); err != nil {
			logger.Warn("Document %d: apply failed: %v", sg.DocumentID, err)
			report.Failures = append(report.Failures, driving.ApplyFailure{
				DocumentID: sg.DocumentID,
				Message:    err.Error(),
			})
		}
	}

	return report, nil
}

func (s *AnalyzeService) applyOne(
	ctx context.Context,
	sg *domain.Suggestion,
	markerID int,
	existing map[string]int,
	inboxTags map[int]bool,
	opts driving.ApplyOptions,
	report *driving.ApplyReport,
) error {
	correspondent := sg.Correspondent.ID
	if sg.Correspondent.CreateNew {
		id, created, err := s.ensureCorrespondent(ctx, sg.Correspondent.Name, existing)
		if err != nil {
			return fmt.Errorf("create correspondent %q: %w", sg.Correspondent.Name, err)
		}
		if created {
			report.CorrespondentsCreated++
		}
		correspondent = &id
	}

	tags := make([]int, 0, len(sg.SuggestedTags)+len(sg.CurrentTags))
	tags = append(tags, sg.SuggestedTags...)
	if !opts.RemoveInboxTags {
		for _, id := range sg.CurrentTags {
			if inboxTags[id] && !containsInt(tags, id) {
				tags = append(tags, id)
			}
		}
	}

	update := driven.DocumentUpdate{
		Correspondent: correspondent,
		DocumentType:  sg.SuggestedType,
		StoragePath:   sg.SuggestedStoragePath,
		Tags:          tags,
	}
	if sg.SuggestedTitle != "" {
		update.Title = &sg.SuggestedTitle
	}

	if err := s.store.UpdateDocument(ctx, sg.DocumentID, update); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	// Marker last: a crash between these two calls leaves the document
	// updated but unmarked, so the next run re-selects it.
	if err := s.store.AddTags(ctx, sg.DocumentID, []int{markerID}); err != nil {
		return fmt.Errorf("add processing marker: %w", err)
	}

	report.Applied++
	logger.Debug("Applied suggestion to document %d", sg.DocumentID)
	return nil
}

// ensureCorrespondent returns the ID for a correspondent name, creating it
// only when neither the store nor this apply pass has it yet.
func (s *AnalyzeService) ensureCorrespondent(ctx context.Context, name string, existing map[string]int) (int, bool, error) {
	key := strings.ToLower(name)
	if id, ok := existing[key]; ok {
		return id, false, nil
	}

	entity, err := s.store.CreateCorrespondent(ctx, name)
	if err != nil {
		return 0, false, err
	}
	existing[key] = entity.ID
	logger.Info("Created correspondent %q (id %d)", entity.Name, entity.ID)
	return entity.ID, true, nil
}

// inboxTagSet returns the IDs of tags flagging inbox membership.
func (s *AnalyzeService) inboxTagSet(ctx context.Context) (map[int]bool, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	inbox := make(map[int]bool)
	for _, t := range tags {
		if t.IsInbox {
			inbox[t.ID] = true
		}
	}
	return inbox, nil
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
