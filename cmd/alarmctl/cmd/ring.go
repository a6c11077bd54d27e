package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/service/checker"
	"github.com/oshokin/alarm-clock/internal/service/client"
)

func newTriggerCommand() *cobra.Command {
	var viaNATS bool

	command := &cobra.Command{
		Use:   "trigger <alarm-id> <MAIN|SNOOZE|TIMEOUT>",
		Short: "Fire a trigger for an alarm as if the scheduler did.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.Trigger(ctx, args[0], args[1], viaNATS)
			})
		},
	}

	command.Flags().BoolVar(&viaNATS, "nats", false, "publish to the NATS trigger subject instead of calling the daemon")

	return command
}

func newWatchCommand() *cobra.Command {
	var interval = checker.DefaultPollInterval

	command := &cobra.Command{
		Use:   "watch",
		Short: "Log alarm state changes until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				PollInterval:  interval,
			})
		},
	}

	command.Flags().DurationVarP(&interval, "interval", "i", interval, "poll interval")

	return command
}
