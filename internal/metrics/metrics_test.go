package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/session"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectorRecordsSessionActivity(t *testing.T) {
	c := New()

	c.SessionStarted()
	c.SessionStarted()
	c.SessionEnded(domain.SessionCompleted)
	c.CommandHandled(session.SourceVoice, domain.CmdNextStep)
	c.CommandHandled(session.SourceVoice, domain.CmdNextStep)
	c.CommandHandled(session.SourceGesture, domain.CmdRepeat)
	c.CommandDropped(session.SourceGesture)
	c.TimerCompleted()

	body := scrape(t, c)
	for _, want := range []string{
		"cookmode_sessions_started_total 2",
		`cookmode_sessions_ended_total{status="completed"} 1`,
		"cookmode_active_sessions 1",
		`cookmode_commands_total{command="next_step",source="voice"} 2`,
		`cookmode_commands_total{command="repeat",source="gesture"} 1`,
		`cookmode_commands_dropped_total{source="gesture"} 1`,
		"cookmode_timers_completed_total 1",
	} {
		assert.Contains(t, body, want)
	}
}

func TestCollectorObservesHTTP(t *testing.T) {
	c := New()
	c.ObserveHTTP(http.MethodPost, "/api/session/navigate", http.StatusOK, 20*time.Millisecond)
	c.ObserveHTTP(http.MethodPost, "/api/session/navigate", http.StatusConflict, time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `cookmode_http_requests_total{code="200",method="POST",route="/api/session/navigate"} 1`)
	assert.Contains(t, body, `cookmode_http_requests_total{code="409",method="POST",route="/api/session/navigate"} 1`)
	assert.Contains(t, body, `cookmode_http_request_duration_seconds_count{method="POST",route="/api/session/navigate"} 2`)
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.TimerCompleted()
	assert.Contains(t, scrape(t, b), "cookmode_timers_completed_total 0")
}
