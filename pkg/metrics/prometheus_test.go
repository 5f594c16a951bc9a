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

	"github.com/wonny/creditgate/internal/contracts"
)

func TestRecordRun(t *testing.T) {
	r := New()

	run := &contracts.ScreeningRun{
		TickersEvaluated: []string{"AAPL", "MSFT", "XOM"},
		Qualified:        []string{},
		Failed: []contracts.TickerFailure{
			{Ticker: "AAPL", Reason: contracts.ReasonSystemOverride},
			{Ticker: "MSFT", Reason: contracts.ReasonSystemOverride},
			{Ticker: "XOM", Reason: contracts.ReasonNoData},
		},
		SystemState: contracts.StateRiskOff,
		Alerts: []contracts.Alert{
			{Mode: contracts.ModeRegimeTransition, Severity: contracts.SeverityCritical},
		},
	}
	r.RecordRun(run, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.scansTotal.WithLabelValues("RISK_OFF")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.tickers.WithLabelValues("evaluated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.tickers.WithLabelValues("qualified")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.tickers.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.systemState.WithLabelValues("RISK_OFF")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.systemState.WithLabelValues("RISK_ON")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alertsTotal.WithLabelValues("REGIME_TRANSITION", "CRITICAL")))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordFetchError("tradier")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.fetchErrors.WithLabelValues("tradier")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.fetchErrors.WithLabelValues("tradier")))
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordState(contracts.StateRiskOn)
	r.RecordRequest("/api/state", http.MethodGet, http.StatusOK, 15*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `creditgate_system_state{state="RISK_ON"} 1`)
	assert.Contains(t, string(body), "creditgate_http_request_duration_seconds")
}

func TestRecordJob(t *testing.T) {
	r := New()
	r.RecordJob("daily_scan", true)
	r.RecordJob("daily_scan", true)
	r.RecordJob("daily_scan", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("daily_scan", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("daily_scan", "failure")))
}
