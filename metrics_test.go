package securebridge

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	status := http.StatusOK
	bridge, _ := newTestBridge(t, transportFunc(func(context.Context, string, string, map[string]string, []byte) (*NormalizedResponse, error) {
		return &NormalizedResponse{StatusCode: status, Data: []byte(`{}`)}, nil
	}))
	bridge.metrics = m
	ctx := context.Background()

	_, err := bridge.Get(ctx, "/branches")
	require.NoError(t, err)
	status = http.StatusNotFound
	_, err = bridge.Get(ctx, "/branches/b9")
	require.Error(t, err)
	_, err = bridge.Post(ctx, "/people", person{Name: "A", Age: -1})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "validation_error")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.requestDuration))
}

func TestNilMetricsAreIgnored(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe("GET", nil, 0) })
}
