package telemetry

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeMetrics(t *testing.T) {
	s, err := ServeMetrics("127.0.0.1:0")
	require.NoError(t, err)
	defer s.Close(context.Background())

	ObserveRun("ok", 1234)
	ObserveRun("CyclesExceeded", 10)

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `cellvm_vm_runs_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), `cellvm_vm_runs_total{outcome="CyclesExceeded"} 1`)
	assert.Contains(t, string(body), "cellvm_vm_cycles_total 1244")
}

func TestShutdownWithoutInit(t *testing.T) {
	assert.NoError(t, ShutdownTracer(context.Background()))
}
