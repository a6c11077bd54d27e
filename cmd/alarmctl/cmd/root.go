package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/service/client"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// configPath to the settings file.
	configPath string
	// serverAddress overrides the daemon address from the settings.
	serverAddress string
	// output selects the output format.
	output string

	// rootCmd represents the base command for controlling the daemon.
	rootCmd = &cobra.Command{
		Use:   "alarmctl",
		Short: "Control the alarm clock daemon.",
		Long: `Manages alarms and acts on ringing alarms through the alarm clock daemon.

Alarms are created and edited with save, switched with toggle and removed with delete;
a deleted alarm can be restored with undo. A ringing alarm is snoozed with snooze and
silenced with dismiss once its missions are complete.`,
		SilenceUsage: true,
	}
)

// Execute runs the alarmctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withController connects to the daemon, runs fn and closes the connection.
func withController(cmd *cobra.Command, fn func(ctx context.Context, c *client.Controller) error) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	controller, err := client.Connect(ctx, &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Output:        output,
		Out:           cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	defer func() {
		_ = controller.Close()
	}()

	return fn(ctx, controller)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
}

// byID builds a command that calls fn with the alarm id argument.
func byID(use, short string, fn func(c *client.Controller, ctx context.Context, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <alarm-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, func(ctx context.Context, c *client.Controller) error {
				return fn(c, ctx, args[0])
			})
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "daemon address, overrides the settings")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", client.OutputText, "output format: text, json or yaml")

	rootCmd.AddCommand(
		newListCommand(),
		byID("get", "Show one alarm.", (*client.Controller).Get),
		newSaveCommand(),
		newToggleCommand(),
		byID("delete", "Delete an alarm; it can be restored with undo.", (*client.Controller).Delete),
		byID("undo", "Restore the most recently deleted copy of an alarm.", (*client.Controller).Undo),
		byID("snooze", "Snooze a ringing alarm.", (*client.Controller).Snooze),
		byID("dismiss", "Dismiss a ringing or snoozed alarm.", (*client.Controller).Dismiss),
		byID("complete-mission", "Mark the current mission of a ringing alarm as completed.",
			(*client.Controller).CompleteMission),
		byID("mission-timeout", "Report that the current mission ran out of time.",
			(*client.Controller).MissionTimeout),
		newTriggerCommand(),
		newWatchCommand(),
	)
}
