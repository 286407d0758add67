//go:build unix

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listJSON bool

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects created since the daemon started",
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := newClient().ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if listJSON {
			return printJSON(map[string]any{"projects": projects})
		}
		if len(projects) == 0 {
			fmt.Println("No projects created")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBOARD\tCREATED")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.BoardID, p.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsListCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}
