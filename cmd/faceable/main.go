// Package main is the entry point for the Faceable CLI.
// Faceable turns face landmarker output into drawing gestures and a smoothed
// cursor, served to a browser canvas over WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpatel2913/Faceable/internal/config"
	"github.com/kpatel2913/Faceable/internal/logging"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool

	loader *config.Loader
	cfg    *config.Config
	log    *logging.Logger
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "faceable",
		Short: "Faceable - draw with your face",
		Long: `Faceable classifies facial gestures and tracks the nose tip to drive a
drawing canvas hands-free:
  • Smile to cycle the drawing tool
  • Raise your eyebrows with your head still to cycle the colour
  • Open your mouth to toggle drawing

Start the frame stream server:  faceable serve
Replay a recording:             faceable replay session.yaml
Configuration:                  faceable config show`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.faceable/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config or log file needed.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Faceable v%s\n", version)
		},
	})

	root.AddCommand(serveCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(configCmd())

	return root
}

// setup resolves the configuration (file, defaults and FACEABLE_* env) and
// starts logging from its logging section.
func setup(cmd *cobra.Command, args []string) error {
	l, err := config.NewLoader(cfgPath)
	if err != nil {
		return err
	}
	loader = l

	if cfg, err = loader.Resolve(); err != nil {
		return err
	}

	logCfg := loggingConfig(cfg.Logging)
	if verbose {
		logCfg.Level = logging.LevelDebug
	}
	if log, err = logging.New(logCfg); err != nil {
		return err
	}

	log.Debug("main", "Faceable starting", map[string]interface{}{
		"version": version,
		"config":  loader.Path(),
	})
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if log != nil {
		return log.Close()
	}
	return nil
}

func loggingConfig(c config.LoggingConfig) *logging.Config {
	return &logging.Config{
		LogDir:     c.Dir,
		Level:      logging.LogLevel(c.Level),
		MaxHistory: c.MaxHistory,
		Console:    c.Console,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
