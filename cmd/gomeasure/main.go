package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/philipparndt/gomeasure/internal/config"
	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/version"
)

var (
	cfgFile string
	v       = config.New()
	cfg     config.Config
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gomeasure",
	Short: "Collaborative point-to-point measurements in a shared 3D scene",
	Long: `gomeasure lets several users place, move and delete distance measurements
in the same 3D scene. A relay server orders every change and broadcasts it to
all clients of a room, which then converge on the same set of measurements.`,
	Version:           version.GetFullVersion(),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./gomeasure.yaml or $HOME/.config/gomeasure.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd.Flags()); err != nil {
		return err
	}
	var err error
	cfg, err = config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	log, err = logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	if file := v.ConfigFileUsed(); file != "" {
		logger.For(log, logger.AreaConfig).Debug("config loaded", "file", file)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
