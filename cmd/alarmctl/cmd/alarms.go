package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/service/client"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every alarm ordered by time of day.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.List(ctx)
			})
		},
	}
}

func newSaveCommand() *cobra.Command {
	var (
		input          client.SaveInput
		timeOfDay      string
		days           string
		label          string
		sound          string
		disabled       bool
		vibrate        bool
		volume         int
		snoozeInterval int
		snoozeMax      int
		missions       []string
	)

	command := &cobra.Command{
		Use:   "save [alarm-id]",
		Short: "Create an alarm, or update the given fields of an existing one.",
		Long: `Creates an alarm when no id is given. With an id only the flags that are set
change the stored alarm. Saving a ringing alarm keeps its ring episode untouched.

Missions are given as type[:key=value,...], for example --mission math:difficulty=hard.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				input.ID = args[0]
			}

			flags := cmd.Flags()

			if flags.Changed("time") || input.ID == "" {
				input.Time = &timeOfDay
			}

			if flags.Changed("days") {
				input.Days = &days
			}

			if flags.Changed("label") {
				input.Label = &label
			}

			if flags.Changed("sound") {
				input.Sound = &sound
			}

			if flags.Changed("disabled") {
				enabled := !disabled
				input.Enabled = &enabled
			}

			if flags.Changed("vibrate") {
				input.Vibrate = &vibrate
			}

			if flags.Changed("volume") {
				input.Volume = &volume
			}

			if flags.Changed("snooze-interval") {
				input.SnoozeInterval = &snoozeInterval
			}

			if flags.Changed("snooze-max") {
				input.SnoozeMax = &snoozeMax
			}

			if flags.Changed("mission") {
				input.Missions = missions
			}

			return withController(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.Save(ctx, &input)
			})
		},
	}

	flags := command.Flags()
	flags.StringVarP(&timeOfDay, "time", "t", "", "time of day as HH:MM")
	flags.StringVarP(&days, "days", "d", "", "repeat days such as MON,WED; empty for a one-time alarm")
	flags.StringVarP(&label, "label", "l", "", "alarm label")
	flags.StringVar(&sound, "sound", "", "sound file played while ringing")
	flags.BoolVar(&disabled, "disabled", false, "save the alarm switched off")
	flags.BoolVar(&vibrate, "vibrate", false, "vibrate while ringing")
	flags.IntVar(&volume, "volume", 0, "volume in percent")
	flags.IntVar(&snoozeInterval, "snooze-interval", 0, "snooze interval in minutes")
	flags.IntVar(&snoozeMax, "snooze-max", 0, "snoozes allowed per ring episode")
	flags.StringArrayVarP(&missions, "mission", "m", nil, "mission as type[:key=value,...], repeatable")

	return command
}

func newToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <alarm-id> <on|off>",
		Short: "Switch an alarm on or off.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := client.ParseEnabled(args[1])
			if err != nil {
				return err
			}

			return withController(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.Toggle(ctx, args[0], enabled)
			})
		},
	}
}
