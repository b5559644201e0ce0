package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	m := New()

	m.RecordRequest("POST", "/api/v1/auth/login", 200, 20*time.Millisecond)
	m.RecordRequest("POST", "/api/v1/auth/login", 200, 30*time.Millisecond)
	m.RecordRequest("POST", "/api/v1/auth/login", 401, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/api/v1/auth/login", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/api/v1/auth/login", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestRecordAuth(t *testing.T) {
	m := New()

	m.RecordAuth("login", nil)
	m.RecordAuth("login", errors.New("bad password"))
	m.RecordAuth("login", errors.New("unknown user"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues("login", OutcomeFailure)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/", 200, time.Second)
		m.RecordAuth("login", nil)
		m.RecordRateLimited("/")
		assert.NoError(t, m.RegisterDB(nil, "x"))
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordAuth("desktop_exchange", nil)
	m.RecordRateLimited("/api/v1/auth/login")

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, m.RegisterDB(db, "lingokeeper"))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `lingokeeper_auth_events_total{operation="desktop_exchange",outcome="success"} 1`), text)
	assert.Contains(t, text, `lingokeeper_rate_limited_total{route="/api/v1/auth/login"} 1`)
	assert.Contains(t, text, "go_goroutines")
	assert.Contains(t, text, "go_sql_open_connections")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordAuth("login", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.AuthEvents.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AuthEvents.WithLabelValues("login", OutcomeSuccess)))
}
