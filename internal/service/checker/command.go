// Package checker polls the daemon and reports alarm state changes.
package checker

import (
	"context"
	"fmt"
	"time"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/common"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between checks.
	PollInterval time.Duration
}

// DefaultPollInterval defines the default polling interval.
const DefaultPollInterval = 5 * time.Second

// Lister returns the current alarms.
type Lister interface {
	List(ctx context.Context) ([]*api.AlarmMessage, error)
}

// Change is a difference between two polls.
type Change struct {
	// ID is the alarm id.
	ID string
	// From is the previous state, empty for new alarms.
	From string
	// To is the current state, empty for deleted alarms.
	To string
	// Alarm is the current alarm, nil for deleted alarms.
	Alarm *api.AlarmMessage
}

// Run polls the alarms and logs every state change until the context is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-checker")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout.Std()))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching alarms", "server_address", serverAddress, "interval", opts.PollInterval.String())

	return Poll(ctx, client, opts.PollInterval, func(change Change) {
		logChange(ctx, change)
	})
}

// Poll lists the alarms on every tick and reports the changes since the previous poll.
// The first poll reports every alarm as new. Failed polls are logged and retried.
func Poll(ctx context.Context, lister Lister, interval time.Duration, report func(Change)) error {
	known := make(map[string]*api.AlarmMessage)

	check := func() {
		alarms, err := lister.List(ctx)
		if err != nil {
			logger.ErrorKV(ctx, "List alarms failed", "error", err)

			return
		}

		for _, change := range diff(known, alarms) {
			report(change)
		}
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			check()
		}
	}
}

// diff updates known in place and returns the changes, deletions last.
func diff(known map[string]*api.AlarmMessage, alarms []*api.AlarmMessage) []Change {
	var changes []Change

	seen := make(map[string]struct{}, len(alarms))

	for _, a := range alarms {
		seen[a.ID] = struct{}{}

		previous, ok := known[a.ID]
		known[a.ID] = a

		switch {
		case !ok:
			changes = append(changes, Change{ID: a.ID, To: a.State, Alarm: a})
		case previous.State != a.State || previous.Enabled != a.Enabled || !sameInstant(previous.NextTriggerAt, a.NextTriggerAt):
			changes = append(changes, Change{ID: a.ID, From: previous.State, To: a.State, Alarm: a})
		}
	}

	for id, previous := range known {
		if _, ok := seen[id]; ok {
			continue
		}

		delete(known, id)
		changes = append(changes, Change{ID: id, From: previous.State})
	}

	return changes
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}

func logChange(ctx context.Context, change Change) {
	ctx = logger.WithKV(ctx, "alarm_id", change.ID)

	switch {
	case change.Alarm == nil:
		logger.InfoKV(ctx, "Alarm deleted", "from", change.From)
	case change.To == string(domain.StateRinging):
		logger.WarnKV(ctx, "Alarm ringing", "label", change.Alarm.Label, "from", change.From)
	default:
		logger.InfoKV(ctx, "Alarm changed",
			"from", change.From,
			"to", change.To,
			"enabled", change.Alarm.Enabled,
			"next_trigger_at", change.Alarm.NextTriggerAt)
	}
}
