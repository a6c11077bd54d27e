package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/ingest"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/common"
)

// Options configures how alarmctl reaches the daemon.
type Options struct {
	// ConfigPath to the settings file, defaults to the standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the server address from the settings when specified.
	ServerAddress string
	// Output selects the output format: text, json or yaml.
	Output string
	// Out receives the printed results; nil means stdout.
	Out io.Writer
}

// Controller runs alarmctl operations against one daemon.
type Controller struct {
	// client is the connected daemon client.
	client *common.Client
	// settings carries the NATS settings used by trigger publishing.
	settings *config.Config
	// printer renders results.
	printer *printer
}

var (
	// errNATSNotConfigured is returned when a trigger is published without a NATS URL.
	errNATSNotConfigured = errors.New("nats url is not configured")
	// errInvalidMission is returned for malformed --mission values.
	errInvalidMission = errors.New("mission must look like type[:key=value,...]")
)

// Connect loads the settings and dials the daemon.
// A missing settings file is tolerated when the server address is given explicitly.
func Connect(ctx context.Context, opts *Options) (*Controller, error) {
	ctx = logger.WithName(ctx, "alarmctl")

	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	p, err := newPrinter(opts.Output, opts.Out)
	if err != nil {
		return nil, err
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Calling without actor", "error", err)
	}

	client, err := common.Dial(ctx, settings.ServerAddress,
		common.WithCallTimeout(settings.Timeout.Std()),
		common.WithActor(actor))
	if err != nil {
		return nil, err
	}

	return &Controller{
		client:   client,
		settings: settings,
		printer:  p,
	}, nil
}

func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
	case opts.ServerAddress != "" && errors.Is(err, os.ErrNotExist):
		settings = &config.Config{Timeout: config.Duration(config.DefaultTimeout)}
		config.ApplyEnv(settings)
	default:
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.ServerAddress != "" {
		settings.ServerAddress = opts.ServerAddress
	}

	return settings, nil
}

// Close releases the connection.
func (c *Controller) Close() error {
	return c.client.Close()
}

// List prints every alarm.
func (c *Controller) List(ctx context.Context) error {
	alarms, err := c.client.List(ctx)
	if err != nil {
		return err
	}

	return c.printer.alarms(alarms)
}

// Get prints one alarm.
func (c *Controller) Get(ctx context.Context, id string) error {
	return c.print(c.client.Get(ctx, id))
}

// SaveInput holds the editable alarm fields; nil fields keep the stored value
// when updating and take the zero value when creating.
type SaveInput struct {
	ID             string
	Time           *string
	Days           *string
	Label          *string
	Enabled        *bool
	Sound          *string
	Volume         *int
	Vibrate        *bool
	SnoozeInterval *int
	SnoozeMax      *int
	Missions       []string
}

// Save creates an alarm, or updates the fields set in the input when the id exists.
func (c *Controller) Save(ctx context.Context, input *SaveInput) error {
	message := &api.AlarmMessage{ID: input.ID, Enabled: true}

	if input.ID != "" {
		existing, err := c.client.Get(ctx, input.ID)
		if err != nil {
			return err
		}

		message = existing.Alarm
	}

	if err := input.apply(message); err != nil {
		return err
	}

	return c.print(c.client.Save(ctx, message))
}

func (in *SaveInput) apply(m *api.AlarmMessage) error {
	setString(&m.Time, in.Time)
	setString(&m.Label, in.Label)
	setString(&m.Sound, in.Sound)
	setBool(&m.Enabled, in.Enabled)
	setBool(&m.Vibrate, in.Vibrate)
	setInt(&m.Volume, in.Volume)
	setInt(&m.Snooze.IntervalMinutes, in.SnoozeInterval)
	setInt(&m.Snooze.MaxCount, in.SnoozeMax)

	if in.Days != nil {
		days, err := domain.ParseWeekdays(*in.Days)
		if err != nil {
			return err
		}

		m.Days = days
	}

	if in.Missions != nil {
		missions, err := parseMissions(in.Missions)
		if err != nil {
			return err
		}

		m.Missions = missions
	}

	return nil
}

// parseMissions parses values such as "math:difficulty=hard,count=3".
func parseMissions(values []string) ([]domain.Mission, error) {
	missions := make([]domain.Mission, 0, len(values))

	for _, value := range values {
		kind, rawParams, _ := strings.Cut(value, ":")

		kind = strings.TrimSpace(kind)
		if kind == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidMission, value)
		}

		mission := domain.Mission{Type: kind}

		for pair := range strings.SplitSeq(rawParams, ",") {
			if strings.TrimSpace(pair) == "" {
				continue
			}

			key, val, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return nil, fmt.Errorf("%w: %q", errInvalidMission, value)
			}

			if mission.Params == nil {
				mission.Params = make(map[string]string)
			}

			mission.Params[strings.TrimSpace(key)] = strings.TrimSpace(val)
		}

		missions = append(missions, mission)
	}

	return missions, nil
}

// Toggle enables or disables an alarm.
func (c *Controller) Toggle(ctx context.Context, id string, enabled bool) error {
	return c.print(c.client.Toggle(ctx, id, enabled))
}

// Delete removes an alarm.
func (c *Controller) Delete(ctx context.Context, id string) error {
	return c.print(c.client.Delete(ctx, id))
}

// Undo restores a deleted alarm.
func (c *Controller) Undo(ctx context.Context, id string) error {
	return c.print(c.client.Undo(ctx, id))
}

// Snooze pauses a ringing alarm.
func (c *Controller) Snooze(ctx context.Context, id string) error {
	return c.print(c.client.Snooze(ctx, id))
}

// Dismiss ends the ring episode.
func (c *Controller) Dismiss(ctx context.Context, id string) error {
	return c.print(c.client.Dismiss(ctx, id))
}

// CompleteMission records the completion of the current mission.
func (c *Controller) CompleteMission(ctx context.Context, id string) error {
	return c.print(c.client.CompleteMission(ctx, id))
}

// MissionTimeout reports that the current mission ran out of time.
func (c *Controller) MissionTimeout(ctx context.Context, id string) error {
	return c.print(c.client.MissionTimeout(ctx, id))
}

// Trigger fires a trigger for the alarm through the daemon or, with viaNATS, through
// the configured NATS subject.
func (c *Controller) Trigger(ctx context.Context, id, kind string, viaNATS bool) error {
	triggerKind, err := domain.ParseTriggerKind(kind)
	if err != nil {
		return err
	}

	if !viaNATS {
		if err := c.client.Trigger(ctx, id, triggerKind); err != nil {
			return err
		}

		return c.printer.line("Trigger " + string(triggerKind) + " sent to " + id)
	}

	if c.settings.NATS.URL == "" {
		return errNATSNotConfigured
	}

	subject := c.settings.NATS.TriggerSubject
	if subject == "" {
		subject = config.DefaultTriggerSubject
	}

	trigger := domain.Trigger{AlarmID: id, Kind: triggerKind, At: time.Now()}
	if err := ingest.Publish(c.settings.NATS.URL, subject, trigger); err != nil {
		return err
	}

	return c.printer.line("Trigger " + string(triggerKind) + " published to " + subject + " for " + id)
}

func (c *Controller) print(response *api.AlarmResponse, err error) error {
	if err != nil {
		return err
	}

	return c.printer.response(response)
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

func setBool(target *bool, value *bool) {
	if value != nil {
		*target = *value
	}
}

func setInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}

// ParseEnabled accepts on/off style values for the toggle command.
func ParseEnabled(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "enable", "enabled":
		return true, nil
	case "off", "disable", "disabled":
		return false, nil
	default:
		enabled, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("parse enabled %q: %w", s, err)
		}

		return enabled, nil
	}
}
