package services

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// Resolver maps free-text suggestions onto existing taxonomy entities.
//
// Resolution is deterministic: exact case-insensitive match first, then a
// normalized fuzzy match gated by a similarity floor. Unmatched tags, types
// and storage paths are dropped; only correspondents may be marked for
// creation, and only when allowCreate is set. The resolver never mutates
// the taxonomy.
type Resolver struct {
	threshold   float64
	allowCreate bool
	dmp         *diffmatchpatch.DiffMatchPatch
}

// NewResolver creates a resolver with the given similarity floor and
// correspondent-creation policy.
func NewResolver(threshold float64, allowCreate bool) *Resolver {
	return &Resolver{
		threshold:   threshold,
		allowCreate: allowCreate,
		dmp:         diffmatchpatch.New(),
	}
}

// Resolve binds a parsed suggestion against the taxonomy snapshot and
// returns a suggestion record with the resolved fields populated. The
// caller fills in document identity and current-value fields.
func (r *Resolver) Resolve(parsed *domain.ParsedSuggestion, tax domain.TaxonomySnapshot) domain.Suggestion {
	s := domain.Suggestion{
		SuggestedTitle: parsed.Title,
		Status:         domain.StatusSuccess,
	}

	if match := r.match(parsed.DocumentType, tax.DocumentTypes); match != nil {
		s.SuggestedType = &match.ID
		s.SuggestedTypeName = match.Name
	}

	if match := r.match(parsed.StoragePath, tax.StoragePaths); match != nil {
		s.SuggestedStoragePath = &match.ID
		s.SuggestedStoragePathName = match.Name
	}

	s.SuggestedTags, s.SuggestedTagNames = r.resolveTags(parsed.Tags, tax.Tags)
	s.Correspondent = r.resolveCorrespondent(parsed.Correspondent, tax.Correspondents)

	return s
}

// resolveTags binds each suggested tag name independently. Unmatched names
// are silently dropped: tags are curated by the operator and never created.
func (r *Resolver) resolveTags(names []string, tags []domain.Entity) ([]int, []string) {
	ids := make([]int, 0, len(names))
	resolved := make([]string, 0, len(names))
	seen := make(map[int]bool)

	for _, name := range names {
		match := r.match(name, tags)
		if match == nil || seen[match.ID] {
			continue
		}
		seen[match.ID] = true
		ids = append(ids, match.ID)
		resolved = append(resolved, match.Name)
	}
	return ids, resolved
}

// resolveCorrespondent binds a suggested correspondent, or marks it for
// creation when allowed. Correspondents are the one open-ended kind: any
// company or person can appear on a document, so an unmatched name is a
// creation candidate rather than a drop.
func (r *Resolver) resolveCorrespondent(name string, correspondents []domain.Entity) domain.CorrespondentResolution {
	if name == "" {
		return domain.CorrespondentResolution{}
	}
	if match := r.match(name, correspondents); match != nil {
		return domain.CorrespondentResolution{ID: &match.ID, Name: match.Name}
	}
	if r.allowCreate {
		return domain.CorrespondentResolution{Name: name, CreateNew: true}
	}
	return domain.CorrespondentResolution{}
}

// match finds the existing entity for a suggested name, or nil.
func (r *Resolver) match(name string, entities []domain.Entity) *domain.Entity {
	if name == "" {
		return nil
	}

	// 1. Exact case-insensitive match.
	for i := range entities {
		if strings.EqualFold(entities[i].Name, name) {
			return &entities[i]
		}
	}

	// 2. Normalized fuzzy match above the similarity floor. Ties break to
	// the smallest edit distance, then the alphabetically first name.
	norm := normalizeName(name)
	if norm == "" {
		return nil
	}

	var best *domain.Entity
	bestDist := -1
	for i := range entities {
		candNorm := normalizeName(entities[i].Name)
		if candNorm == "" {
			continue
		}
		dist := r.editDistance(norm, candNorm)
		if similarity(dist, norm, candNorm) < r.threshold {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && entities[i].Name < best.Name) {
			best = &entities[i]
			bestDist = dist
		}
	}
	return best
}

// editDistance is the Levenshtein distance between two strings.
func (r *Resolver) editDistance(a, b string) int {
	diffs := r.dmp.DiffMain(a, b, false)
	return r.dmp.DiffLevenshtein(diffs)
}

// similarity maps an edit distance onto [0,1], 1 meaning identical.
func similarity(dist int, a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

// normalizeName case-folds a name and strips punctuation so cosmetic
// differences ("Acme Corp." vs "acme corp") do not defeat matching.
// Interior whitespace collapses to single spaces.
func normalizeName(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
