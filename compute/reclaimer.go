package compute

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//FloatingIPReclaimer detaches and releases the floating ips of a node being destroyed
type FloatingIPReclaimer struct {
	provider    api.Provider
	floatingIPs *FloatingIPCache
	log         logrus.FieldLogger
}

//NewFloatingIPReclaimer creates a FloatingIPReclaimer
func NewFloatingIPReclaimer(provider api.Provider, floatingIPs *FloatingIPCache, log logrus.FieldLogger) *FloatingIPReclaimer {
	return &FloatingIPReclaimer{
		provider:    provider,
		floatingIPs: floatingIPs,
		log:         loggerOrDefault(log),
	}
}

//Reclaim releases every floating ip attached to the node. Calling it on a node without floating
//ip does nothing. The cached association of the node is dropped in every case.
func (r *FloatingIPReclaimer) Reclaim(id api.RegionAndID) (api.RegionAndID, error) {
	defer r.floatingIPs.Invalidate(id)
	mgr, err := r.provider.FloatingIPManager(id.Region)
	if err != nil {
		return id, errors.Wrapf(err, "error reclaiming floating ips of node %s", id)
	}
	ips, err := r.floatingIPs.Get(id)
	if err != nil {
		return id, errors.Wrapf(err, "error reclaiming floating ips of node %s", id)
	}
	log := r.log.WithField("node", id.String())
	for _, ip := range ips {
		if mgr.RequiresDetach() {
			err = mgr.Dissociate(ip)
			if err != nil && !api.IsNotFound(err) {
				return id, errors.Wrapf(err, "error detaching floating ip %s from node %s", ip.Address, id)
			}
		}
		err = mgr.Delete(ip.ID)
		if api.IsNotFound(err) {
			log.WithField("ip", ip.Address).Debug("floating ip already released")
			continue
		}
		if err != nil {
			return id, errors.Wrapf(err, "error releasing floating ip %s of node %s", ip.Address, id)
		}
		log.WithField("ip", ip.Address).Debug("floating ip released")
	}
	return id, nil
}
