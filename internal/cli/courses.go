package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List active Canvas courses",
	Args:  cobra.NoArgs,
	RunE:  runCourses,
}

func runCourses(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	courses, err := a.svc.Courses(cmd.Context())
	if err != nil {
		return err
	}

	if len(courses) == 0 {
		fmt.Println("No active courses found.")
		return nil
	}
	for _, c := range courses {
		fmt.Printf("%d\t%s\n", c.ID, c.Name)
	}
	return nil
}
