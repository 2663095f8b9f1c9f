package compute

import (
	"math/rand"
	"sync"
	"time"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/talgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//FloatingIPAllocator obtains a floating ip for a running node and attaches it.
//
//Allocation decisions of one allocator are serialized. Nothing coordinates distinct allocators
//or processes: two of them scavenging unattached ips may pick the same address, shuffling the
//candidates only makes it less likely.
type FloatingIPAllocator struct {
	provider    api.Provider
	floatingIPs *FloatingIPCache
	log         logrus.FieldLogger
	metrics     *Metrics

	mu   sync.Mutex
	rand *rand.Rand
}

//NewFloatingIPAllocator creates a FloatingIPAllocator
func NewFloatingIPAllocator(provider api.Provider, floatingIPs *FloatingIPCache, log logrus.FieldLogger, metrics *Metrics) *FloatingIPAllocator {
	return &FloatingIPAllocator{
		provider:    provider,
		floatingIPs: floatingIPs,
		log:         loggerOrDefault(log),
		metrics:     metrics,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

//Allocate obtains a floating ip for node, trying pools in order, then the default pool, then
//unattached ips. It returns the attached ip and the node updated with its new public address.
//An InsufficientResourcesError is returned when no strategy succeeds.
func (a *FloatingIPAllocator) Allocate(node api.Node, pools []string) (*api.FloatingIP, *api.Node, error) {
	mgr, err := a.provider.FloatingIPManager(node.ID.Region)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error allocating floating ip for node %s", node.ID)
	}
	log := a.log.WithField("node", node.ID.String())

	a.mu.Lock()
	defer a.mu.Unlock()
	ip, err := a.obtain(mgr, node.ID, pools, log)
	if err != nil {
		return nil, nil, err
	}
	log = log.WithField("ip", ip.Address)
	err = mgr.Associate(*ip, node.ID.ID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error associating floating ip %s with node %s", ip.Address, node.ID)
	}
	a.floatingIPs.Invalidate(node.ID)
	log.Debug("floating ip attached")

	attached := *ip
	attached.ServerID = node.ID.ID
	updated := node.WithPublicAddress(ip.Address)
	return &attached, &updated, nil
}

func (a *FloatingIPAllocator) obtain(mgr api.FloatingIPManager, nodeID api.RegionAndID, pools []string, log logrus.FieldLogger) (*api.FloatingIP, error) {
	var lastErr error
	for _, pool := range pools {
		ip, err := mgr.AllocateFromPool(pool)
		if err == nil {
			a.metrics.allocation("pool")
			return ip, nil
		}
		if !api.IsResourceExhausted(err) {
			return nil, errors.Wrapf(err, "error allocating floating ip from pool %s", pool)
		}
		log.WithField("pool", pool).WithError(err).Debug("floating ip pool exhausted")
		lastErr = err
	}

	ip, err := mgr.Create()
	if err == nil {
		a.metrics.allocation("create")
		return ip, nil
	}
	if !api.IsResourceExhausted(err) {
		return nil, errors.Wrap(err, "error allocating floating ip from default pool")
	}
	log.WithError(err).Debug("default floating ip pool exhausted")
	lastErr = err

	ips, err := mgr.List()
	if err != nil {
		return nil, errors.Wrap(err, "error listing floating ips")
	}
	free := talgo.FindAll(len(ips), func(i int) bool {
		return !ips[i].Attached()
	})
	if len(free) == 0 {
		a.metrics.allocation("exhausted")
		return nil, api.NewInsufficientResourcesError(lastErr, nodeID)
	}
	a.rand.Shuffle(len(free), func(i, j int) {
		free[i], free[j] = free[j], free[i]
	})
	a.metrics.allocation("scavenge")
	picked := ips[free[0]]
	log.WithField("ip", picked.Address).Debug("reusing unattached floating ip")
	return &picked, nil
}
