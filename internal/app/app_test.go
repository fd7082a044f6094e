package app

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNew_BuildsAppFromDefaultsWithNoConfigFile(t *testing.T) {
	t.Setenv("INGEST_PORT", "18080")
	t.Setenv("METRICS_PORT", "19090")

	a, err := New("")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 18080, a.config.IngestPort)
	assert.Len(t, a.registry.States(), 4)
}

func TestStartAndStop_ServesHealthAndShutsDownCleanly(t *testing.T) {
	t.Setenv("INGEST_PORT", "18081")
	t.Setenv("METRICS_PORT", "19091")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")

	a, err := New("")
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Stop()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://localhost:18081/api/v1/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStartAndStop_LeavesNoGoroutinesRunning(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("github.com/sirupsen/logrus.(*Entry).log"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	t.Setenv("INGEST_PORT", "18082")
	t.Setenv("METRICS_PORT", "19092")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")

	a, err := New("")
	require.NoError(t, err)
	require.NoError(t, a.Start())

	time.Sleep(50 * time.Millisecond)
	a.Stop()
	time.Sleep(50 * time.Millisecond)
}
