package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driving"
)

var (
	analyzeDocID      int
	analyzeLimit      int
	analyzeForce      bool
	analyzeApply      bool
	analyzeYes        bool
	analyzeRmInbox    bool
	analyzeExportPath string
	analyzeJSON       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze inbox documents and suggest categorizations",
	Long: `Analyzes documents awaiting categorization with the configured CLI agent and
prints a reviewable suggestion per document. Documents already carrying the
processing marker tag are skipped unless --force or --id is given. Nothing
is written back to the store without --apply.

The command exits zero when the run completed, even if individual documents
failed; per-document failures are reported in the output.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeDocID, "id", 0, "analyze a specific document by ID")
	analyzeCmd.Flags().IntVarP(&analyzeLimit, "limit", "n", 0, "attempt at most N documents")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "include documents already marked as processed")
	analyzeCmd.Flags().BoolVar(&analyzeApply, "apply", false, "apply successful suggestions to the store")
	analyzeCmd.Flags().BoolVarP(&analyzeYes, "yes", "y", false, "skip the confirmation prompt before applying")
	analyzeCmd.Flags().BoolVar(&analyzeRmInbox, "remove-inbox-tag", false, "drop inbox tags when applying")
	analyzeCmd.Flags().StringVar(&analyzeExportPath, "export", "", "export suggestions to a JSON file")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output suggestions as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	opts := driving.AnalyzeOptions{
		Limit: analyzeLimit,
		Force: analyzeForce,
	}
	if analyzeDocID > 0 {
		opts.DocumentID = &analyzeDocID
	}

	report, err := analyzerService.Analyze(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if analyzeExportPath != "" {
		if err := exportSuggestions(analyzeExportPath, report.Suggestions); err != nil {
			return err
		}
		cmd.Printf("%s Exported %d suggestion(s) to %s\n",
			renderOK("✓"), len(report.Suggestions), analyzeExportPath)
	}

	if analyzeJSON {
		if err := outputSuggestionsJSON(cmd, report.Suggestions); err != nil {
			return err
		}
	} else {
		outputSuggestions(cmd, report)
	}

	if !analyzeApply {
		return nil
	}
	return applySuggestions(cmd, report)
}

func applySuggestions(cmd *cobra.Command, report *driving.RunReport) error {
	if report.Succeeded == 0 {
		cmd.Println("Nothing to apply.")
		return nil
	}

	if !analyzeYes {
		ok, err := confirm(cmd, fmt.Sprintf("Apply %d suggestion(s) to the document store?", report.Succeeded))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Apply cancelled.")
			return nil
		}
	}

	applied, err := analyzerService.Apply(cmd.Context(), report.Suggestions, driving.ApplyOptions{
		RemoveInboxTags: analyzeRmInbox,
	})
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	cmd.Println()
	cmd.Printf("%s Applied changes to %d document(s)\n", renderOK("✓"), applied.Applied)
	if applied.CorrespondentsCreated > 0 {
		cmd.Printf("%s Created %d new correspondent(s)\n", renderOK("✓"), applied.CorrespondentsCreated)
	}
	if applied.Skipped > 0 {
		cmd.Printf("%s Skipped %d suggestion(s) without a successful analysis\n",
			renderDim("-"), applied.Skipped)
	}
	for _, f := range applied.Failures {
		cmd.Printf("%s Document %d: %s\n", renderFail("✗"), f.DocumentID, f.Message)
	}
	return nil
}

// confirm asks the operator before mutating the store. A non-interactive
// stdin cannot answer, so it requires --yes instead of hanging.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	stdin, isFile := cmd.InOrStdin().(*os.File)
	if isFile && !term.IsTerminal(int(stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; use --yes to apply without confirmation")
	}

	cmd.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func outputSuggestions(cmd *cobra.Command, report *driving.RunReport) {
	for i := range report.Suggestions {
		cmd.Println()
		cmd.Print(renderSuggestion(&report.Suggestions[i]))
	}

	cmd.Println()
	cmd.Printf("Analyzed %d document(s): %d succeeded, %d agent failures, %d parse failures, %d skipped\n",
		report.Attempted(), report.Succeeded, report.AgentFailures, report.ParseFailures, report.Skipped)
}

func outputSuggestionsJSON(cmd *cobra.Command, suggestions []domain.Suggestion) error {
	data, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// exportSuggestions writes the full suggestion records, including raw agent
// output, to a JSON file for audit or later review.
func exportSuggestions(path string, suggestions []domain.Suggestion) error {
	data, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
