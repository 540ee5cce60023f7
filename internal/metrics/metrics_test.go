package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/dialog"
	"fair-bot/internal/ledger"
)

var (
	_ dialog.Observer = (*Metrics)(nil)
	_ ledger.Observer = (*Metrics)(nil)
)

func TestCounters(t *testing.T) {
	m := New()

	m.UpdateHandled("text", "handled", 10*time.Millisecond)
	m.UpdateHandled("text", "handled", 20*time.Millisecond)
	m.UpdateHandled("callback", "ignored", time.Millisecond)
	m.LedgerOp("transfer", "applied")
	m.LedgerOp("transfer", "rejected")
	m.AuditFailed("reward")
	m.SendFailed("sendMessage")
	m.Throttled()
	m.StatesPurged(3)
	m.StatesPurged(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.updates.WithLabelValues("text", "handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("callback", "ignored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerOps.WithLabelValues("transfer", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures.WithLabelValues("reward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendErrors.WithLabelValues("sendMessage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.throttled))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.statesPurged))
	// по серии гистограммы на каждую форму апдейта
	assert.Equal(t, 2, testutil.CollectAndCount(m.updateDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.UpdateHandled("text", "handled", time.Second)
		m.LedgerOp("transfer", "applied")
		m.AuditFailed("transfer")
		m.SendFailed("sendMessage")
		m.Throttled()
		m.StatesPurged(1)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.AuditFailed("purchase")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `fair_audit_failures_total{kind="purchase"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
