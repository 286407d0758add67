//go:build unix

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gurisko/fide/internal/export"
)

var (
	exportDest   string
	exportGit    bool
	exportAuthor string
	exportEmail  string
)

var projectsExportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Write a project's rendered files to a directory",
	Long: `Fetch every file of a project through the daemon and write the rendered
copy into an empty or missing directory. Binary and oversized files are
skipped. With --git the directory becomes a repository holding one commit.

Examples:
  fide projects export 3f0c... --dest ./blinky
  fide projects export 3f0c... --dest ./blinky --git`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportDest == "" {
			return errors.New("--dest is required")
		}
		res, err := export.Export(cmd.Context(), newClient(), args[0], exportDest, export.Options{
			Git:         exportGit,
			AuthorName:  exportAuthor,
			AuthorEmail: exportEmail,
			Logger:      logger.Named("export"),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d files to %s\n", res.Files, exportDest)
		for _, p := range res.Skipped {
			fmt.Printf("  skipped %s\n", p)
		}
		if res.Commit != "" {
			fmt.Printf("  commit %s\n", res.Commit)
		}
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsExportCmd)
	projectsExportCmd.Flags().StringVarP(&exportDest, "dest", "d", "", "target directory (required)")
	projectsExportCmd.Flags().BoolVar(&exportGit, "git", false, "initialise a git repository and commit")
	projectsExportCmd.Flags().StringVar(&exportAuthor, "author", "", "commit author name")
	projectsExportCmd.Flags().StringVar(&exportEmail, "email", "", "commit author email")
	_ = projectsExportCmd.MarkFlagRequired("dest")
}
