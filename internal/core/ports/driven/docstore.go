package driven

import (
	"context"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// DocumentUpdate is a partial metadata update. Nil fields are left untouched.
type DocumentUpdate struct {
	Title         *string
	Correspondent *int
	DocumentType  *int
	StoragePath   *int
	Tags          []int
}

// DocumentStore is the remote document management system holding documents
// and the taxonomy. Pagination is the implementation's responsibility:
// listing operations return fully drained result sets.
type DocumentStore interface {
	// TestConnection verifies the store is reachable and the token is accepted.
	TestConnection(ctx context.Context) error

	// ListInbox returns all documents currently in the inbox. When
	// excludeTagID is non-nil, documents carrying that tag are filtered out.
	ListInbox(ctx context.Context, excludeTagID *int) ([]domain.Document, error)

	// GetDocument fetches a single document by ID.
	GetDocument(ctx context.Context, id int) (*domain.Document, error)

	// ListTags returns all existing tags.
	ListTags(ctx context.Context) ([]domain.Entity, error)

	// ListCorrespondents returns all existing correspondents.
	ListCorrespondents(ctx context.Context) ([]domain.Entity, error)

	// ListDocumentTypes returns all existing document types.
	ListDocumentTypes(ctx context.Context) ([]domain.Entity, error)

	// ListStoragePaths returns all existing storage paths.
	ListStoragePaths(ctx context.Context) ([]domain.Entity, error)

	// CreateCorrespondent creates a new correspondent by name.
	CreateCorrespondent(ctx context.Context, name string) (*domain.Entity, error)

	// EnsureTag returns the tag with the given name, creating it when absent.
	EnsureTag(ctx context.Context, name string) (*domain.Entity, error)

	// UpdateDocument applies a partial metadata update to a document.
	UpdateDocument(ctx context.Context, id int, update DocumentUpdate) error

	// AddTags adds the given tags to a document, preserving its existing tags.
	AddTags(ctx context.Context, id int, tagIDs []int) error
}
