package compute_test

import (
	"strings"
	"testing"
	"time"

	"github.com/SebastienDorgan/anynodes/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	cfg := `{
  "compute": {
    "floating_ip_pools": ["ext", "backup"],
    "auto_assign_floating_ip": true,
    "parallelism": 3,
    "node_running_timeout": "2m"
  }
}`
	opts, err := compute.LoadOptions(strings.NewReader(cfg), "json")
	require.NoError(t, err)
	assert.Equal(t, []string{"ext", "backup"}, opts.FloatingIPPools)
	assert.True(t, opts.AutoAssignFloatingIP)
	assert.Equal(t, 3, opts.Parallelism)
	assert.Equal(t, 2*time.Minute, opts.NodeRunningTimeout)
	assert.Equal(t, compute.DefaultOptions().CacheSize, opts.CacheSize)
	assert.Equal(t, 5*time.Second, opts.NodePollInterval)
}

func TestLoadOptionsErrors(t *testing.T) {
	_, err := compute.LoadOptions(strings.NewReader("{"), "json")
	assert.Error(t, err)
	_, err = compute.LoadOptions(strings.NewReader(`{"compute": {"parallelism": 0}}`), "json")
	assert.Error(t, err)
	_, err = compute.LoadOptions(strings.NewReader(`{"compute": {"key_size": 512}}`), "json")
	assert.Error(t, err)
}

func TestValidateOptions(t *testing.T) {
	assert.NoError(t, compute.DefaultOptions().Validate())
	assert.Error(t, compute.Options{}.Validate())

	opts := compute.DefaultOptions()
	opts.NodePollInterval = 0
	assert.Error(t, opts.Validate())
	opts = compute.DefaultOptions()
	opts.NodeRunningTimeout = -time.Second
	assert.Error(t, opts.Validate())
	opts = compute.DefaultOptions()
	opts.CacheSize = -1
	assert.Error(t, opts.Validate())
}
