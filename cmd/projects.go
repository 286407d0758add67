//go:build unix

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gurisko/fide/internal/apiclient"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Create and inspect projects held by the FIDE daemon",
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func newClient() *apiclient.Client {
	return apiclient.New(cfg.SocketPath)
}
