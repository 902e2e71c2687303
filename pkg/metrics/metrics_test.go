package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	return 0
}

func TestMetrics_EngineCounters(t *testing.T) {
	m := New(DefaultConfig("pick-ticket-service"))

	m.RecordRun("api", "completed", "scenario", 120*time.Millisecond)
	m.RecordJobCreated("scenario", "mixed")
	m.RecordJobCreated("scenario", "mixed")
	m.RecordOrdersClassified("bin", 3)
	m.RecordOrdersClassified("layer", 0)
	m.RecordOrderExcluded("missing_master_data")
	m.RecordRowsEmitted(7)

	assert.Equal(t, 1.0, value(t, m.RunsTotal.WithLabelValues("pick-ticket-service", "api", "completed")))
	assert.Equal(t, 2.0, value(t, m.JobsCreated.WithLabelValues("pick-ticket-service", "scenario", "mixed")))
	assert.Equal(t, 3.0, value(t, m.OrdersClassified.WithLabelValues("pick-ticket-service", "bin")))
	assert.Equal(t, 1.0, value(t, m.OrdersExcluded.WithLabelValues("pick-ticket-service", "missing_master_data")))
	assert.Equal(t, 7.0, value(t, m.RowsEmitted))
}

func TestMetrics_Outbox(t *testing.T) {
	m := New(DefaultConfig("svc"))

	m.SetOutboxPending(4)
	m.RecordOutboxPublish("wms.pick-ticket.generated", false, time.Millisecond)
	m.RecordOutboxRetry("wms.pick-ticket.generated")

	assert.Equal(t, 4.0, value(t, m.OutboxPending))
	assert.Equal(t, 1.0, value(t, m.OutboxPublished.WithLabelValues("svc", "wms.pick-ticket.generated", "error")))
	assert.Equal(t, 1.0, value(t, m.OutboxRetries.WithLabelValues("svc", "wms.pick-ticket.generated")))
}

func TestMetrics_Idempotency(t *testing.T) {
	m := New(DefaultConfig("svc"))

	m.RecordIdempotency("replayed")
	m.RecordIdempotency("replayed")
	m.RecordIdempotency("stored")

	assert.Equal(t, 2.0, value(t, m.IdempotentRequests.WithLabelValues("svc", "replayed")))
	assert.Equal(t, 1.0, value(t, m.IdempotentRequests.WithLabelValues("svc", "stored")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(DefaultConfig("svc"))
	m.RecordHTTPRequest("GET", "/api/v1/pick-tickets", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wms_http_requests_total")
}
