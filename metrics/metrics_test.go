package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromCountsEncodes(t *testing.T) {
	p := NewProm("jxlpress_test")

	p.EncodeCompleted(ResultSuccess, 1000, 400)
	p.EncodeCompleted(ResultEncodeError, 1000, 0)
	p.FallbackAttempted()

	assert.Equal(t, 1.0, testutil.ToFloat64(p.encodes.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.encodes.WithLabelValues(ResultEncodeError)))
	assert.Equal(t, 1000.0, testutil.ToFloat64(p.bytesIn))
	assert.Equal(t, 400.0, testutil.ToFloat64(p.bytesOut))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fallbacks))
}

func TestPromTracksRunningProcesses(t *testing.T) {
	p := NewProm("jxlpress_test")

	p.ProcessStarted("cjxl")
	p.ProcessStarted("cjxl")
	assert.Equal(t, 2.0, testutil.ToFloat64(p.processesRunning.WithLabelValues("cjxl")))

	p.ProcessFinished("cjxl", 0, time.Second)
	p.ProcessFinished("cjxl", 1, time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(p.processesRunning.WithLabelValues("cjxl")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.processFailures.WithLabelValues("cjxl")))
}

func TestHandlerServesMetrics(t *testing.T) {
	p := NewProm("jxlpress_test")
	p.ArtifactsPending(3)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "jxlpress_test_artifacts_pending 3")
}
