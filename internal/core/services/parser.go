package services

import (
	"strings"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// ParseResponse extracts a structured suggestion from raw agent output.
//
// Matching is line-anchored and additive-tolerant: labels may vary in case,
// carry extra whitespace or markdown emphasis, and sit inside arbitrary
// surrounding commentary. When a label appears more than once the last
// occurrence wins. The parser is strict only about the presence of the
// title label: a response without it is domain.ErrMissingTitle, and a
// response with no recognisable label at all is domain.ErrMalformedResponse.
func ParseResponse(raw string) (*domain.ParsedSuggestion, error) {
	parsed := &domain.ParsedSuggestion{}
	sawLabel := false
	sawTitle := false

	for _, line := range strings.Split(raw, "\n") {
		label, value, ok := splitLabel(line)
		if !ok {
			continue
		}
		sawLabel = true

		switch label {
		case LabelTitle:
			sawTitle = true
			parsed.Title = noneToEmpty(value)

		case LabelType:
			// The agent is told not to invent types; a NEW: prefix
			// here is stripped and the name still has to resolve
			// against existing types or be dropped.
			parsed.DocumentType = stripNewPrefix(noneToEmpty(value))

		case LabelTags:
			parsed.Tags = splitTags(noneToEmpty(value))

		case LabelCorrespondent:
			name := noneToEmpty(value)
			if stripped := stripNewPrefix(name); stripped != name {
				parsed.Correspondent = stripped
				parsed.CorrespondentIsNew = true
			} else {
				parsed.Correspondent = name
				parsed.CorrespondentIsNew = false
			}

		case LabelStoragePath:
			parsed.StoragePath = stripNewPrefix(noneToEmpty(value))
		}
	}

	if !sawLabel {
		return nil, domain.ErrMalformedResponse
	}
	if !sawTitle {
		return nil, domain.ErrMissingTitle
	}
	return parsed, nil
}

// splitLabel matches "LABEL: value" at the start of a line, tolerating
// whitespace, markdown emphasis and case variation in the label.
func splitLabel(line string) (label, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.Trim(trimmed, "*_")

	idx := strings.Index(trimmed, ":")
	if idx < 0 {
		return "", "", false
	}

	candidate := strings.ToUpper(strings.Trim(strings.TrimSpace(trimmed[:idx]), "*_"))
	switch candidate {
	case LabelTitle, LabelType, LabelTags, LabelCorrespondent, LabelStoragePath:
		// Emphasis markers can straddle the colon ("**TITLE:** Invoice").
		value = strings.TrimSpace(strings.TrimLeft(trimmed[idx+1:], "*_ "))
		return candidate, value, true
	default:
		return "", "", false
	}
}

// noneToEmpty maps the None sentinel (any case) to an absent value.
func noneToEmpty(value string) string {
	if strings.EqualFold(value, NoneSentinel) {
		return ""
	}
	return value
}

// stripNewPrefix removes a leading NEW: marker, case-insensitively.
func stripNewPrefix(value string) string {
	if len(value) >= len(NewPrefix) && strings.EqualFold(value[:len(NewPrefix)], NewPrefix) {
		return strings.TrimSpace(value[len(NewPrefix):])
	}
	return value
}

// splitTags splits a comma-separated tag list, trimming each entry and
// dropping empties. A NEW: prefix on an individual tag is stripped; tags are
// never created, so the name either matches an existing tag or is dropped
// during resolution.
func splitTags(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := stripNewPrefix(strings.TrimSpace(p))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
