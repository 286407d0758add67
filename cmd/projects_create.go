//go:build unix

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gurisko/fide/internal/apiclient"
)

var createName, createBoard string
var createJSON bool

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Scaffold a project from a board template",
	Long: `Create a project from the template of the given board. The project name
replaces {{PROJECT_NAME}} in every file served for it.

Examples:
  fide projects create --name blinky --board esp32
  fide projects create -n motor-demo -b stm32f4 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		createName = strings.TrimSpace(createName)
		createBoard = strings.TrimSpace(createBoard)
		if createName == "" || createBoard == "" {
			return errors.New("--name and --board are required")
		}

		out, err := newClient().CreateProject(cmd.Context(), createName, createBoard)
		if err != nil {
			if apiclient.IsNotFound(err) {
				return fmt.Errorf("board %q not found; see `fide boards list`", createBoard)
			}
			return err
		}
		if createJSON {
			return printJSON(out)
		}
		fmt.Printf("Created %q on %s (id=%s)\n", createName, createBoard, out.ProjectID)
		fmt.Printf("  Container: %s\n", out.ContainerID)
		fmt.Printf("  Workspace: %s\n", out.WorkspaceURL)
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCreateCmd.Flags().StringVarP(&createName, "name", "n", "", "project name (required)")
	projectsCreateCmd.Flags().StringVarP(&createBoard, "board", "b", "", "board id (required)")
	projectsCreateCmd.Flags().BoolVar(&createJSON, "json", false, "print JSON")
	_ = projectsCreateCmd.MarkFlagRequired("name")
	_ = projectsCreateCmd.MarkFlagRequired("board")
}
