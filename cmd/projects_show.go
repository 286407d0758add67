//go:build unix

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gurisko/fide/internal/apiclient"
	"github.com/gurisko/fide/internal/templates"
)

var showJSON bool

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project and its file tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

var projectsCatCmd = &cobra.Command{
	Use:   "cat <project-id> <path>",
	Short: "Print a project file with the project name substituted",
	Long: `Print one file of a project. Paths are relative to the project root and
use forward slashes.

Examples:
  fide projects cat 3f0c... src/main.c
  fide projects cat 3f0c... README.md`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := newClient().File(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		_, err = io.WriteString(os.Stdout, content)
		return err
	},
}

func init() {
	projectsCmd.AddCommand(projectsShowCmd)
	projectsCmd.AddCommand(projectsCatCmd)
	projectsShowCmd.Flags().BoolVar(&showJSON, "json", false, "output JSON")
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	detail, err := newClient().Project(cmd.Context(), projectID)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return fmt.Errorf("project %q not found", projectID)
		}
		return err
	}

	// Output JSON if requested
	if showJSON {
		return printJSON(detail)
	}

	p := detail.Project
	fmt.Printf("# %s\n\n", p.Name)
	fmt.Printf("ID:        %s\n", p.ID)
	fmt.Printf("Container: %s\n", p.ContainerID)
	fmt.Printf("Board:     %s\n", p.BoardID)
	fmt.Printf("Created:   %s\n", p.CreatedAt.Format(time.RFC3339))

	fmt.Printf("\n## Files\n\n")
	printTree(os.Stdout, detail.FileTree, 0)
	return nil
}

func printTree(w io.Writer, nodes []templates.FileNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if n.IsDirectory {
			fmt.Fprintf(w, "%s%s/\n", indent, n.Name)
			printTree(w, n.Children, depth+1)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, n.Name)
	}
}
