package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/service/server"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// configPath to the settings file.
	configPath string
	// envFiles are loaded into the environment before the settings.
	envFiles []string
	// watchConfig enables hot reload of runtime settings.
	watchConfig bool

	// rootCmd represents the base command for running the alarm daemon.
	rootCmd = &cobra.Command{
		Use:   "alarm-clockd [listen-address]",
		Short: "Run the alarm clock daemon.",
		Long: `Starts the alarm clock daemon that schedules alarms, rings them and tracks their lifecycle.

The daemon listens on the specified address or uses settings from configuration file.
Only the port from ServerAddress config is used for listening (e.g., :7070).
Alarms are kept in the configured store (memory, sqlite or NATS key-value) and their
triggers are re-armed on startup; alarms that should have rung while the daemon was
down are reported as missed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				EnvFiles:      envFiles,
				WatchConfig:   watchConfig,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-clockd CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env and .env.local)")
	rootCmd.Flags().BoolVarP(&watchConfig, "watch", "w", true, "reload log level and ring timeout when the settings change")
}
