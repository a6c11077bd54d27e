package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	t.Parallel()

	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncTransition("SCHEDULED", "RINGING")
	r.IncTransition("SCHEDULED", "RINGING")
	r.IncRejection("snooze_limit_reached")
	r.IncTrigger("MAIN")
	r.IncTriggerFailure("TIMEOUT")
	r.IncRetry("TIMEOUT")
	r.ObserveTransition("ring", 20*time.Millisecond)
	r.SetRinging(true)

	require.InDelta(t, 2, testutil.ToFloat64(r.transitions.WithLabelValues("SCHEDULED", "RINGING")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.rejections.WithLabelValues("snooze_limit_reached")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.ringing), 0)

	r.SetRinging(false)
	require.InDelta(t, 0, testutil.ToFloat64(r.ringing), 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "alarmclock_transitions_total"))
}

func TestNop(t *testing.T) {
	t.Parallel()

	var r Recorder = Nop{}

	require.NotPanics(t, func() {
		r.IncTransition("a", "b")
		r.SetRinging(true)
	})
}
