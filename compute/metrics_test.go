package compute

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	var none *Metrics
	none.allocation("pool")
	none.cleanupFailure("key_pair")

	m := NewMetrics()
	require.NoError(t, m.Register(prometheus.NewRegistry()))
	m.allocation("scavenge")
	m.allocation("scavenge")
	m.cleanupFailure("floating_ip")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.floatingIPAllocations.WithLabelValues("scavenge")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.floatingIPAllocations.WithLabelValues("pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleanupStepFailures.WithLabelValues("floating_ip")))

	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}
