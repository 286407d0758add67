//go:build unix

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gurisko/fide/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the FIDE daemon",
	Long: `Control the FIDE background daemon that owns the board catalog and the
project registry.

The daemon runs in the background and provides:
- HTTP API over Unix socket
- The same API over TCP (http_addr) for browser IDE clients
- Prometheus metrics at /metrics`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FIDE daemon",
	Long: `Start the FIDE daemon in foreground mode.

Projects live in memory only and are gone once the daemon stops.

For background operation, use:
  nohup fide daemon start > /tmp/fide-daemon.log 2>&1 &`,
	RunE: startDaemon,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the FIDE daemon",
	Long:  "Stop the running FIDE daemon gracefully.",
	RunE:  stopDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status",
	Long:  "Check if the FIDE daemon is running and display its status.",
	RunE:  statusDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)

	daemonStartCmd.Flags().String("http-addr", "", "TCP listen address for browser clients (empty disables)")
	_ = viper.BindPFlag("http_addr", daemonStartCmd.Flags().Lookup("http-addr"))
}

func newDaemon() (*daemon.Daemon, error) {
	d, err := daemon.New(daemon.ConfigFrom(cfg, logger.Named("daemon")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize daemon: %w", err)
	}
	return d, nil
}

func startDaemon(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}

	return d.Start()
}

func stopDaemon(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}

	return d.Stop()
}

func statusDaemon(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}

	status, err := d.GetStatus()
	if err != nil {
		return err
	}

	// Format for display
	if !status.Running {
		if status.PID > 0 {
			if status.ErrorMessage != "" {
				fmt.Printf("FIDE daemon process exists (PID: %d) but not responding\n", status.PID)
				fmt.Printf("  Socket: %s\n", status.SocketPath)
				fmt.Printf("  Error: %v\n", status.ErrorMessage)
			} else {
				fmt.Printf("FIDE daemon is not running (stale pidfile)\n")
				fmt.Printf("  Socket: %s\n", status.SocketPath)
			}
		} else {
			fmt.Printf("FIDE daemon is not running\n")
			fmt.Printf("  Socket: %s\n", status.SocketPath)
		}
	} else {
		fmt.Printf("FIDE daemon running (PID: %d)\n", status.PID)
		fmt.Printf("  Socket:   %s\n", status.SocketPath)
		fmt.Printf("  Uptime:   %s\n", status.Uptime.Round(time.Second))
		fmt.Printf("  Projects: %d\n", status.Projects)
	}

	return nil
}
