//go:build unix

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gurisko/fide/internal/boards"
)

var boardsJSON bool

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "Inspect the board catalog",
}

var boardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boards known to the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListBoards(cmd.Context())
		if err != nil {
			return err
		}
		if boardsJSON {
			return printJSON(map[string]any{"boards": list})
		}
		return printBoards(list)
	},
}

var boardsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the catalog whenever the templates directory changes",
	Long: `Watch the local templates directory and reprint the board catalog each
time a board directory or descriptor changes. Does not need the daemon.`,
	RunE: runBoardsWatch,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.AddCommand(boardsListCmd)
	boardsCmd.AddCommand(boardsWatchCmd)
	boardsListCmd.Flags().BoolVar(&boardsJSON, "json", false, "print JSON")
}

func printBoards(list []boards.BoardConfig) error {
	if len(list) == 0 {
		fmt.Println("No boards found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMCU\tARCH\tRAM\tFLASH")
	for _, b := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dK\t%dK\n", b.ID, b.Name, b.MCU, b.Architecture, b.RAMKB, b.FlashKB)
	}
	return w.Flush()
}

func runBoardsWatch(cmd *cobra.Command, args []string) error {
	catalog := boards.NewCatalog(cfg.TemplatesDir, logger.Named("boards"))
	w, err := boards.NewWatcher(catalog.Root(), cfg.WatchDebounce, logger.Named("watcher"))
	if err != nil {
		return err
	}
	defer w.Stop()

	changes, err := w.Start()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n\n", catalog.Root())
	if err := printBoards(catalog.List()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			fmt.Println()
			if err := printBoards(catalog.List()); err != nil {
				return err
			}
		}
	}
}
