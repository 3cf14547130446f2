package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Test the connection to the document store",
	Args:  cobra.NoArgs,
	RunE:  runTestConnection,
}

func init() {
	rootCmd.AddCommand(testConnectionCmd)
}

func runTestConnection(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	if err := documentStore.TestConnection(cmd.Context()); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	cmd.Printf("%s Successfully connected to the document store\n", renderOK("✓"))
	return nil
}
