package compute_test

import (
	"testing"
	"time"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/compute"
	"github.com/SebastienDorgan/anynodes/providers/memory"
	"github.com/SebastienDorgan/anynodes/tests"
	"github.com/stretchr/testify/require"
)

const region = "r1"

func newProvider(t *testing.T, cfg memory.Config) *memory.Provider {
	if len(cfg.Regions) == 0 {
		cfg.Regions = []string{region, "r2"}
	}
	p, err := memory.NewProvider(cfg)
	require.NoError(t, err)
	return p
}

func testOptions() compute.Options {
	opts := compute.DefaultOptions()
	opts.NodeRunningTimeout = 5 * time.Second
	opts.NodePollInterval = time.Millisecond
	opts.KeySize = 1024
	return opts
}

func floatingIPCache(t *testing.T, p api.Provider) *compute.FloatingIPCache {
	c, err := compute.NewFloatingIPCache(p, 0)
	require.NoError(t, err)
	return c
}

func createNode(t *testing.T, p api.Provider, opts api.CreateServerOptions) *api.Node {
	servers, err := p.ServerManager(region)
	require.NoError(t, err)
	if opts.Name == "" {
		opts.Name = "node"
	}
	n, err := servers.Create(opts)
	require.NoError(t, err)
	running, err := compute.WaitUntilNodeLeavesPending(servers, n.ID.ID, time.Second, time.Millisecond)
	require.NoError(t, err)
	return running
}

type orchestratorFixture struct {
	provider       *memory.Provider
	floatingIPs    *compute.FloatingIPCache
	securityGroups *compute.SecurityGroupCache
	keyPairs       *compute.KeyPairCache
	allocator      *compute.FloatingIPAllocator
	orchestrator   *compute.CleanupOrchestrator
	metrics        *compute.Metrics
}

func newOrchestratorFixture(t *testing.T, cfg memory.Config) *orchestratorFixture {
	p := newProvider(t, cfg)
	log := tests.NewTestLogger(t)
	f := &orchestratorFixture{provider: p, metrics: compute.NewMetrics()}
	f.floatingIPs = floatingIPCache(t, p)
	var err error
	f.securityGroups, err = compute.NewSecurityGroupCache(compute.NewSecurityGroupProvisioner(p, "test", log), 0)
	require.NoError(t, err)
	f.keyPairs, err = compute.NewKeyPairCache(compute.NewKeyPairProvisioner(p, 1024, log), 0)
	require.NoError(t, err)
	f.allocator = compute.NewFloatingIPAllocator(p, f.floatingIPs, log, f.metrics)
	reclaimer := compute.NewFloatingIPReclaimer(p, f.floatingIPs, log)
	f.orchestrator = compute.NewCleanupOrchestrator(p, reclaimer, f.floatingIPs, f.securityGroups, f.keyPairs, log, f.metrics)
	return f
}
