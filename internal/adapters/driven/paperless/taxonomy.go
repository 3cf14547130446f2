package paperless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// matchingAlgorithmAuto is the store's ML-backed matching mode, assigned to
// correspondents this tool creates so the store keeps matching future
// documents on its own.
const matchingAlgorithmAuto = 6

// entityModel is the store's representation for named taxonomy entities.
type entityModel struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	IsInboxTag bool   `json:"is_inbox_tag"`
}

func (m *entityModel) toDomain() domain.Entity {
	return domain.Entity{ID: m.ID, Name: m.Name, IsInbox: m.IsInboxTag}
}

// listEntities drains one taxonomy list endpoint.
func (c *Client) listEntities(ctx context.Context, path string) ([]domain.Entity, error) {
	raw, err := c.getAllPages(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	entities := make([]domain.Entity, 0, len(raw))
	for _, r := range raw {
		var m entityModel
		if err := json.Unmarshal(r, &m); err != nil {
			return nil, fmt.Errorf("decode entity: %w", err)
		}
		entities = append(entities, m.toDomain())
	}
	return entities, nil
}

// ListTags returns all existing tags.
func (c *Client) ListTags(ctx context.Context) ([]domain.Entity, error) {
	return c.listEntities(ctx, "/api/tags/")
}

// ListCorrespondents returns all existing correspondents.
func (c *Client) ListCorrespondents(ctx context.Context) ([]domain.Entity, error) {
	return c.listEntities(ctx, "/api/correspondents/")
}

// ListDocumentTypes returns all existing document types.
func (c *Client) ListDocumentTypes(ctx context.Context) ([]domain.Entity, error) {
	return c.listEntities(ctx, "/api/document_types/")
}

// ListStoragePaths returns all existing storage paths.
func (c *Client) ListStoragePaths(ctx context.Context) ([]domain.Entity, error) {
	return c.listEntities(ctx, "/api/storage_paths/")
}

// CreateCorrespondent creates a new correspondent with auto matching enabled.
func (c *Client) CreateCorrespondent(ctx context.Context, name string) (*domain.Entity, error) {
	payload := map[string]any{
		"name":               name,
		"matching_algorithm": matchingAlgorithmAuto,
	}

	var m entityModel
	if err := c.do(ctx, http.MethodPost, "/api/correspondents/", nil, payload, &m); err != nil {
		return nil, err
	}
	entity := m.toDomain()
	return &entity, nil
}

// EnsureTag returns the tag with the given name, creating it when absent.
// The lookup is case-insensitive to match how names are resolved elsewhere.
func (c *Client) EnsureTag(ctx context.Context, name string) (*domain.Entity, error) {
	tags, err := c.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	for i := range tags {
		if strings.EqualFold(tags[i].Name, name) {
			return &tags[i], nil
		}
	}

	payload := map[string]any{"name": name}
	var m entityModel
	if err := c.do(ctx, http.MethodPost, "/api/tags/", nil, payload, &m); err != nil {
		return nil, fmt.Errorf("create tag %q: %w", name, err)
	}
	entity := m.toDomain()
	return &entity, nil
}
