package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent sync runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVar(&logsLimit, "limit", 20, "Maximum number of runs to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.svc.Logs(logsLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No sync runs recorded.")
		return nil
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %s  %-10s  c:%d u:%d s:%d f:%d",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.RunID, run.State,
			run.Counts.Created, run.Counts.Updated,
			run.Counts.Skipped, run.Counts.Failed)
		if run.Reason != "" {
			line += "  " + run.Reason
		}
		fmt.Println(line)
	}
	return nil
}
