package domain

import (
	"strings"
	"time"
)

// EntityKind identifies a class of taxonomy entity in the document store.
type EntityKind string

// Available entity kinds.
const (
	KindTag           EntityKind = "tag"
	KindCorrespondent EntityKind = "correspondent"
	KindDocumentType  EntityKind = "document_type"
	KindStoragePath   EntityKind = "storage_path"
)

// String returns the string representation.
func (k EntityKind) String() string {
	return string(k)
}

// Entity is a named taxonomy entity (tag, correspondent, document type or
// storage path) that already exists in the document store.
type Entity struct {
	// ID is the store-assigned identifier.
	ID int

	// Name is the human-readable name used for matching.
	Name string

	// IsInbox marks a tag that flags inbox membership. Only meaningful
	// for tags; always false for other kinds.
	IsInbox bool
}

// Document is a read-only snapshot of a store document for one processing
// pass. The store owns the document; the engine never mutates this struct.
type Document struct {
	// ID is the store-assigned identifier.
	ID int

	// Title is the current title.
	Title string

	// Content is the OCR text of the document.
	Content string

	// Tags holds the IDs of the tags currently on the document.
	Tags []int

	// Correspondent is the current correspondent ID, nil when unset.
	Correspondent *int

	// DocumentType is the current document type ID, nil when unset.
	DocumentType *int

	// StoragePath is the current storage path ID, nil when unset.
	StoragePath *int

	// Created is the document creation timestamp reported by the store.
	Created time.Time

	// OriginalFileName is the uploaded file name, when known.
	OriginalFileName string
}

// HasTag reports whether the document currently carries the given tag ID.
func (d *Document) HasTag(tagID int) bool {
	for _, id := range d.Tags {
		if id == tagID {
			return true
		}
	}
	return false
}

// TaxonomySnapshot holds the existing taxonomy entities fetched once at the
// start of a run. It is read-only for the duration of the run: resolution
// binds against this snapshot and never adds to it.
type TaxonomySnapshot struct {
	Tags           []Entity
	Correspondents []Entity
	DocumentTypes  []Entity
	StoragePaths   []Entity
}

// Entities returns the entity list for the given kind.
func (t *TaxonomySnapshot) Entities(kind EntityKind) []Entity {
	switch kind {
	case KindTag:
		return t.Tags
	case KindCorrespondent:
		return t.Correspondents
	case KindDocumentType:
		return t.DocumentTypes
	case KindStoragePath:
		return t.StoragePaths
	default:
		return nil
	}
}

// Names returns the entity names for the given kind, in snapshot order.
func (t *TaxonomySnapshot) Names(kind EntityKind) []string {
	entities := t.Entities(kind)
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return names
}

// NameOf returns the name of the entity with the given ID, or "" when the ID
// is nil or not present in the snapshot.
func (t *TaxonomySnapshot) NameOf(kind EntityKind, id *int) string {
	if id == nil {
		return ""
	}
	for _, e := range t.Entities(kind) {
		if e.ID == *id {
			return e.Name
		}
	}
	return ""
}

// TagNames maps tag IDs to names, skipping IDs unknown to the snapshot.
func (t *TaxonomySnapshot) TagNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		tagID := id
		if name := t.NameOf(KindTag, &tagID); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FindTag returns the tag with the given name (case-insensitive), or nil.
func (t *TaxonomySnapshot) FindTag(name string) *Entity {
	return findByName(t.Tags, name)
}

// FindCorrespondent returns the correspondent with the given name
// (case-insensitive), or nil.
func (t *TaxonomySnapshot) FindCorrespondent(name string) *Entity {
	return findByName(t.Correspondents, name)
}

func findByName(entities []Entity, name string) *Entity {
	for i := range entities {
		if strings.EqualFold(entities[i].Name, name) {
			return &entities[i]
		}
	}
	return nil
}
