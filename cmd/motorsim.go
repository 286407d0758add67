package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gurisko/fide/internal/motorsim"
)

var motorsimCmd = &cobra.Command{
	Use:   "motorsim",
	Short: "Motor telemetry simulator",
}

var motorsimRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulator and stream telemetry to viewers",
	Long: `Run a simulated DC motor and stream its DLT register messages to every
connected viewer as Server-Sent Events at http://127.0.0.1:<port>/telemetry.

Samples can also be published to NATS and recorded to SQLite.

Examples:
  fide motorsim run
  fide motorsim run --port 9000 --tick 50ms
  fide motorsim run --nats-url nats://127.0.0.1:4222 --record ./motor.db`,
	RunE: runMotorsim,
}

func init() {
	rootCmd.AddCommand(motorsimCmd)
	motorsimCmd.AddCommand(motorsimRunCmd)

	f := motorsimRunCmd.Flags()
	f.Duration("tick", 0, "simulation step (default 100ms)")
	f.Int("port", 0, "telemetry server port (default 8084)")
	f.String("nats-url", "", "publish samples to this NATS server")
	f.String("record", "", "append samples to this SQLite file")

	_ = viper.BindPFlag("motorsim.tick", f.Lookup("tick"))
	_ = viper.BindPFlag("motorsim.port", f.Lookup("port"))
	_ = viper.BindPFlag("motorsim.nats_url", f.Lookup("nats-url"))
	_ = viper.BindPFlag("motorsim.record_path", f.Lookup("record"))
}

func runMotorsim(cmd *cobra.Command, args []string) error {
	mc := cfg.MotorSim
	log := logger.Named("motorsim")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []motorsim.Sink
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				log.Warn("closing sink", zap.Error(err))
			}
		}
	}()

	if mc.NATSURL != "" {
		ns, err := motorsim.NewNATSSink(mc.NATSURL, mc.Subject, log)
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		sinks = append(sinks, ns)
	}
	if mc.RecordPath != "" {
		rec, err := motorsim.OpenRecorder(mc.RecordPath)
		if err != nil {
			return err
		}
		sinks = append(sinks, rec)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", mc.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", mc.Port, err)
	}

	hub := motorsim.NewHub(mc.Buffer)
	defer hub.Close()

	sim := motorsim.NewSimulator(motorsim.Params{
		MaxSpeed:     mc.MaxSpeed,
		Acceleration: mc.Acceleration,
	})
	runner := motorsim.NewRunner(sim, hub, mc.Tick, log, sinks...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- motorsim.NewServer(hub, log).Serve(runCtx, ln)
		cancel()
	}()

	runErr := runner.Run(runCtx)
	cancel()

	if err := <-serveErr; err != nil {
		return fmt.Errorf("telemetry server: %w", err)
	}
	return runErr
}
