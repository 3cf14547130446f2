package cli

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// Styles for suggestion rendering. lipgloss degrades to plain text when the
// output is not a terminal.
var (
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleNew     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleSuggest = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleDim     = lipgloss.NewStyle().Faint(true)
	styleBold    = lipgloss.NewStyle().Bold(true)
)

func renderOK(s string) string      { return styleOK.Render(s) }
func renderFail(s string) string    { return styleFail.Render(s) }
func renderNew(s string) string     { return styleNew.Render(s) }
func renderSuggest(s string) string { return styleSuggest.Render(s) }
func renderDim(s string) string     { return styleDim.Render(s) }

// renderSuggestion formats one suggestion record as a current -> suggested
// diff per field. Unchanged fields are shown without an arrow.
func renderSuggestion(s *domain.Suggestion) string {
	var b strings.Builder

	icon := renderOK("✓")
	if s.Status != domain.StatusSuccess {
		icon = renderFail("✗")
	}
	b.WriteString(icon + " " + styleBold.Render("Document "+strconv.Itoa(s.DocumentID)) +
		renderDim(" ["+s.Status.String()+"]") + "\n")

	if s.ErrorMessage != "" {
		b.WriteString("  " + renderFail("Error: "+s.ErrorMessage) + "\n")
		return b.String()
	}

	writeField(&b, "Title", quote(s.CurrentTitle), quoteIf(s.SuggestedTitle), false)
	writeField(&b, "Type", orNone(s.CurrentTypeName), s.SuggestedTypeName, false)
	writeField(&b, "Tags", orNone(strings.Join(s.CurrentTagNames, ", ")),
		strings.Join(s.SuggestedTagNames, ", "), false)

	suggestedCorr := s.Correspondent.Name
	if s.Correspondent.IsNone() {
		suggestedCorr = ""
	}
	writeField(&b, "Correspondent", orNone(s.CurrentCorrespondentName), suggestedCorr, s.Correspondent.CreateNew)

	writeField(&b, "Storage path", orNone(s.CurrentStoragePathName), s.SuggestedStoragePathName, false)

	if s.Correspondent.CreateNew {
		b.WriteString("  " + renderNew("A new correspondent will be created on --apply") + "\n")
	}
	return b.String()
}

// writeField prints "name: current -> suggested", dimming the current value
// when a change is proposed.
func writeField(b *strings.Builder, name, current, suggested string, isNew bool) {
	switch {
	case suggested == "" || strings.EqualFold(current, suggested):
		if current != "" {
			b.WriteString("  " + name + ": " + current + "\n")
		}
	default:
		rendered := renderSuggest(suggested)
		if isNew {
			rendered = renderNew("NEW: " + suggested)
		}
		b.WriteString("  " + name + ": " + renderDim(current) + " -> " + rendered + "\n")
	}
}

func quote(s string) string {
	return `"` + s + `"`
}

func quoteIf(s string) string {
	if s == "" {
		return ""
	}
	return quote(s)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
