package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// Labels of the agent output contract. The prompt instructs the agent to
// answer with these exact labels and the parser matches on them.
const (
	LabelTitle         = "TITLE"
	LabelType          = "TYPE"
	LabelTags          = "TAGS"
	LabelCorrespondent = "CORRESPONDENT"
	LabelStoragePath   = "STORAGE_PATH"
)

// NoneSentinel is the literal the agent uses for absent values.
const NoneSentinel = "None"

// NewPrefix marks a proposed entity that does not exist in the taxonomy.
// Only correspondents may carry it; the resolver ignores it elsewhere.
const NewPrefix = "NEW:"

// PrepareContent truncates document content to maxChars with a visible
// truncation marker, bounding prompt and temp-file size. Truncation is
// rune-safe so multi-byte OCR text is never split mid-character.
func PrepareContent(content string, maxChars int) string {
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return fmt.Sprintf("%s\n\n[Content truncated at %d characters]", string(runes[:maxChars]), maxChars)
}

// formatOptions renders an option list for the prompt.
func formatOptions(names []string) string {
	if len(names) == 0 {
		return "None available"
	}
	return strings.Join(names, ", ")
}

// BuildPrompt renders the categorization prompt. contentRef describes where
// the agent finds the document content; the taxonomy is embedded as
// enumerated option lists so the agent is biased toward reusing existing
// entities over inventing new ones.
//
// The output is deterministic for identical inputs: no randomness and no
// time-dependent content.
func BuildPrompt(contentRef string, tax domain.TaxonomySnapshot) string {
	var b strings.Builder

	b.WriteString("You are helping categorize a document in a document management system.\n\n")
	b.WriteString(contentRef)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Available document types: %s\n", formatOptions(tax.Names(domain.KindDocumentType)))
	fmt.Fprintf(&b, "Available tags: %s\n", formatOptions(tax.Names(domain.KindTag)))
	fmt.Fprintf(&b, "Available correspondents: %s\n", formatOptions(tax.Names(domain.KindCorrespondent)))
	fmt.Fprintf(&b, "Available storage paths: %s\n", formatOptions(tax.Names(domain.KindStoragePath)))

	b.WriteString(`
Based on the content:
1. Suggest an appropriate title (concise, descriptive)
2. Choose a document type from available options (select the best match or "None")
3. Choose relevant tags from available options (select all that apply or "None")
4. Choose a correspondent from available options, OR if none match suggest "NEW: <name>"
5. Choose a storage path from available options (select the best match or "None")

IMPORTANT:
- Only suggest NEW correspondents when confident they should exist but aren't in the list
- Do NOT suggest NEW tags, document types, or storage paths - only use existing options

MATCHING GUIDELINES FOR CORRESPONDENTS:
- Before suggesting NEW, scan the entire available list for a case-insensitive match and use it
- If no exact match, prefer a close existing name ("Amazon.com" matches "Amazon") over creating new
- When suggesting NEW correspondents, use clean canonical names without URLs or legal suffixes

TAG SELECTION:
- Tags describe what the document IS ABOUT, not keywords that merely appear in it
- Only select tags that describe the document's core subject matter

Respond in this format:
TITLE: <suggested title>
TYPE: <existing type or "None">
TAGS: <comma-separated existing tags or "None">
CORRESPONDENT: <existing correspondent or "NEW: name" or "None">
STORAGE_PATH: <existing storage path or "None">`)

	return b.String()
}

// FileReference returns the content reference for backends that read the
// staged document from a file.
func FileReference(path string) string {
	return "The OCR content of the document is in the file: @" + path
}

// InlineReference returns the content reference for backends that receive
// the document embedded in the prompt itself.
func InlineReference(content string) string {
	return "The OCR content is provided below between <ocr_content> tags. " +
		"Use ONLY that text for analysis.\n<ocr_content>\n" + content + "\n</ocr_content>"
}
