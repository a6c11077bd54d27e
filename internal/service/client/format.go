package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var errUnknownOutput = errors.New("unknown output format")

// printer renders results in the selected format.
type printer struct {
	format string
	out    io.Writer
}

func newPrinter(format string, out io.Writer) (*printer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = OutputText
	}

	switch format {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownOutput, format)
	}

	if out == nil {
		out = os.Stdout
	}

	return &printer{format: format, out: out}, nil
}

func (p *printer) alarms(alarms []*api.AlarmMessage) error {
	if p.format != OutputText {
		return p.encode(alarms)
	}

	if len(alarms) == 0 {
		return p.line("No alarms")
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ID\tTIME\tDAYS\tENABLED\tSTATE\tNEXT\tLABEL")

	for _, a := range alarms {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			a.ID, a.Time, days(a), a.Enabled, a.State, formatTime(a.NextTriggerAt), a.Label)
	}

	return w.Flush()
}

func (p *printer) response(response *api.AlarmResponse) error {
	if p.format != OutputText {
		return p.encode(response)
	}

	var b strings.Builder

	if response.Rejected {
		_, _ = fmt.Fprintf(&b, "Rejected (%s): %s\n", response.Reason, response.Message)
	}

	if a := response.Alarm; a != nil {
		_, _ = fmt.Fprintf(&b, "%s %s [%s] %s", a.ID, a.Time, days(a), a.State)

		if !a.Enabled {
			b.WriteString(" disabled")
		}

		if a.NextTriggerAt != nil {
			_, _ = fmt.Fprintf(&b, " next %s", formatTime(a.NextTriggerAt))
		}

		if a.Label != "" {
			_, _ = fmt.Fprintf(&b, " %q", a.Label)
		}

		if ep := a.Episode; ep != nil {
			_, _ = fmt.Fprintf(&b, " missions %d/%d snoozed %d/%d",
				ep.Completed, len(ep.Missions), a.Snooze.Count, a.Snooze.MaxCount)
		}

		b.WriteString("\n")
	} else if !response.Rejected {
		b.WriteString("Done\n")
	}

	if s := response.Signal; s != nil {
		_, _ = fmt.Fprintf(&b, "Mission signal: %s (index %d)", s.Kind, s.Index)

		if s.Mission != nil {
			_, _ = fmt.Fprintf(&b, " %s", s.Mission.Type)
		}

		b.WriteString("\n")
	}

	_, err := io.WriteString(p.out, b.String())

	return err
}

func (p *printer) line(s string) error {
	if p.format != OutputText {
		return p.encode(map[string]string{"result": s})
	}

	_, err := fmt.Fprintln(p.out, s)

	return err
}

func (p *printer) encode(v any) error {
	if p.format == OutputYAML {
		// Round trip through JSON so YAML keys match the wire names.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		encoder := yaml.NewEncoder(p.out)
		encoder.SetIndent(2)

		if err := encoder.Encode(generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return encoder.Close()
	}

	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func days(a *api.AlarmMessage) string {
	if len(a.Days) == 0 {
		return "once"
	}

	return a.Days.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Local().Format("Mon 2006-01-02 15:04")
}
