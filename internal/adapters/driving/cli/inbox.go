package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

var inboxJSON bool

var listInboxCmd = &cobra.Command{
	Use:   "list-inbox",
	Short: "List documents awaiting categorization",
	Args:  cobra.NoArgs,
	RunE:  runListInbox,
}

func init() {
	listInboxCmd.Flags().BoolVar(&inboxJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listInboxCmd)
}

func runListInbox(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	docs, err := analyzerService.ListInbox(cmd.Context())
	if err != nil {
		return fmt.Errorf("list inbox: %w", err)
	}

	if inboxJSON {
		return outputInboxJSON(cmd, docs)
	}
	outputInboxTable(cmd, docs)
	return nil
}

func outputInboxJSON(cmd *cobra.Command, docs []domain.Document) error {
	type row struct {
		ID               int    `json:"id"`
		Title            string `json:"title"`
		Created          string `json:"created,omitempty"`
		OriginalFileName string `json:"original_file_name,omitempty"`
	}

	rows := make([]row, 0, len(docs))
	for _, d := range docs {
		r := row{ID: d.ID, Title: d.Title, OriginalFileName: d.OriginalFileName}
		if !d.Created.IsZero() {
			r.Created = d.Created.Format(time.RFC3339)
		}
		rows = append(rows, r)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputInboxTable(cmd *cobra.Command, docs []domain.Document) {
	if len(docs) == 0 {
		cmd.Println("Inbox is empty.")
		return
	}

	cmd.Printf("Inbox documents (%d total):\n\n", len(docs))
	for _, d := range docs {
		created := ""
		if !d.Created.IsZero() {
			created = d.Created.Format("2006-01-02")
		}
		cmd.Printf("  [%d] %s\n", d.ID, d.Title)
		if created != "" || d.OriginalFileName != "" {
			cmd.Printf("      %s\n", renderDim(joinNonEmpty(created, d.OriginalFileName)))
		}
	}
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "  "
		}
		out += p
	}
	return out
}
