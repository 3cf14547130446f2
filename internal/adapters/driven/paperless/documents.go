package paperless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
)

// documentModel is the store's document representation.
type documentModel struct {
	ID               int        `json:"id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Tags             []int      `json:"tags"`
	Correspondent    *int       `json:"correspondent"`
	DocumentType     *int       `json:"document_type"`
	StoragePath      *int       `json:"storage_path"`
	Created          *time.Time `json:"created"`
	OriginalFileName string     `json:"original_file_name"`
}

func (m *documentModel) toDomain() domain.Document {
	doc := domain.Document{
		ID:               m.ID,
		Title:            m.Title,
		Content:          m.Content,
		Tags:             m.Tags,
		Correspondent:    m.Correspondent,
		DocumentType:     m.DocumentType,
		StoragePath:      m.StoragePath,
		OriginalFileName: m.OriginalFileName,
	}
	if m.Created != nil {
		doc.Created = *m.Created
	}
	return doc
}

// TestConnection verifies the store is reachable and the token is accepted.
func (c *Client) TestConnection(ctx context.Context) error {
	query := url.Values{"page_size": {"1"}}
	var resp paginated
	if err := c.do(ctx, http.MethodGet, "/api/documents/", query, nil, &resp); err != nil {
		return err
	}
	return nil
}

// ListInbox returns all inbox documents, with every page drained. When
// excludeTagID is set, documents already carrying that tag are filtered out
// client side; the store API has no negative tag filter on this endpoint.
func (c *Client) ListInbox(ctx context.Context, excludeTagID *int) ([]domain.Document, error) {
	query := url.Values{"is_in_inbox": {"true"}}
	raw, err := c.getAllPages(ctx, "/api/documents/", query)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}

	docs := make([]domain.Document, 0, len(raw))
	for _, r := range raw {
		var m documentModel
		if err := json.Unmarshal(r, &m); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		doc := m.toDomain()
		if excludeTagID != nil && doc.HasTag(*excludeTagID) {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// GetDocument fetches a single document by ID.
func (c *Client) GetDocument(ctx context.Context, id int) (*domain.Document, error) {
	var m documentModel
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/documents/%d/", id), nil, nil, &m); err != nil {
		return nil, err
	}
	doc := m.toDomain()
	return &doc, nil
}

// UpdateDocument applies a partial metadata update. Only non-nil fields are
// sent, so untouched metadata survives the PATCH.
func (c *Client) UpdateDocument(ctx context.Context, id int, update driven.DocumentUpdate) error {
	payload := make(map[string]any)
	if update.Title != nil {
		payload["title"] = *update.Title
	}
	if update.Correspondent != nil {
		payload["correspondent"] = *update.Correspondent
	}
	if update.DocumentType != nil {
		payload["document_type"] = *update.DocumentType
	}
	if update.StoragePath != nil {
		payload["storage_path"] = *update.StoragePath
	}
	if update.Tags != nil {
		payload["tags"] = update.Tags
	}
	if len(payload) == 0 {
		return nil
	}

	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/documents/%d/", id), nil, payload, nil)
}

// AddTags adds tags to a document while preserving its existing ones. The
// store's tag field is replace-only, so the current set is fetched first.
func (c *Client) AddTags(ctx context.Context, id int, tagIDs []int) error {
	doc, err := c.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch current tags: %w", err)
	}

	merged := doc.Tags
	for _, tagID := range tagIDs {
		if !doc.HasTag(tagID) {
			merged = append(merged, tagID)
		}
	}
	if len(merged) == len(doc.Tags) {
		return nil
	}

	payload := map[string]any{"tags": merged}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/documents/%d/", id), nil, payload, nil)
}
