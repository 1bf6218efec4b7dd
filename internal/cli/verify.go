package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cnsync/internal/notion"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the Notion database schema",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	err = a.svc.VerifySchema(cmd.Context())
	var schemaErr *notion.SchemaError
	if errors.As(err, &schemaErr) {
		fmt.Fprintln(os.Stderr, "schema mismatch:")
		for _, issue := range schemaErr.Issues {
			fmt.Fprintf(os.Stderr, "  %s\n", issue)
		}
		os.Exit(2)
	}
	if err != nil {
		return err
	}

	fmt.Println("Notion database schema is valid.")
	return nil
}
