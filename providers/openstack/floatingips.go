package openstack

import (
	"github.com/SebastienDorgan/anynodes/api"
	gc "github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/floatingips"
	neutronips "github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/ports"
	"github.com/pkg/errors"
)

var errNoDefaultPool = errors.New("no default floating ip pool configured")

//NovaFloatingIPManager floating ips served by the Nova os-floating-ips extension.
//Addresses must be dissociated before being released.
type NovaFloatingIPManager struct {
	compute     *gc.ServiceClient
	defaultPool string
}

func novaFloatingIP(ip *floatingips.FloatingIP) *api.FloatingIP {
	return &api.FloatingIP{
		ID:       ip.ID,
		Address:  ip.IP,
		Pool:     ip.Pool,
		ServerID: ip.InstanceID,
		FixedIP:  ip.FixedIP,
	}
}

//RequiresDetach returns true
func (mgr *NovaFloatingIPManager) RequiresDetach() bool {
	return true
}

//AllocateFromPool allocates a floating ip from pool
func (mgr *NovaFloatingIPManager) AllocateFromPool(pool string) (*api.FloatingIP, error) {
	ip, err := floatingips.Create(mgr.compute, floatingips.CreateOpts{Pool: pool}).Extract()
	if err != nil {
		return nil, errors.Wrapf(classify(err, "floating ip", pool), "error allocating floating ip from pool %s", pool)
	}
	return novaFloatingIP(ip), nil
}

//Create allocates a floating ip from the configured pool
func (mgr *NovaFloatingIPManager) Create() (*api.FloatingIP, error) {
	if mgr.defaultPool == "" {
		return nil, api.NewResourceExhaustedError(errNoDefaultPool, "floating ip")
	}
	return mgr.AllocateFromPool(mgr.defaultPool)
}

//List lists the floating ips of the tenant
func (mgr *NovaFloatingIPManager) List() ([]api.FloatingIP, error) {
	page, err := floatingips.List(mgr.compute).AllPages()
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing floating ips")
	}
	l, err := floatingips.ExtractFloatingIPs(page)
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing floating ips")
	}
	var res []api.FloatingIP
	for i := range l {
		res = append(res, *novaFloatingIP(&l[i]))
	}
	return res, nil
}

//Associate attaches ip to a server
func (mgr *NovaFloatingIPManager) Associate(ip api.FloatingIP, serverID string) error {
	err := floatingips.AssociateInstance(mgr.compute, serverID, floatingips.AssociateOpts{
		FloatingIP: ip.Address,
	}).ExtractErr()
	if err != nil {
		return errors.Wrapf(classify(err, "server", serverID), "error associating floating ip %s", ip.Address)
	}
	return nil
}

//Dissociate detaches ip from its server
func (mgr *NovaFloatingIPManager) Dissociate(ip api.FloatingIP) error {
	if ip.ServerID == "" {
		return nil
	}
	err := floatingips.DisassociateInstance(mgr.compute, ip.ServerID, floatingips.DisassociateOpts{
		FloatingIP: ip.Address,
	}).ExtractErr()
	if err != nil {
		return errors.Wrapf(classify(err, "server", ip.ServerID), "error dissociating floating ip %s", ip.Address)
	}
	return nil
}

//Delete releases a floating ip
func (mgr *NovaFloatingIPManager) Delete(id string) error {
	err := floatingips.Delete(mgr.compute, id).ExtractErr()
	if err != nil {
		return errors.Wrap(classify(err, "floating ip", id), "error releasing floating ip")
	}
	return nil
}

//NeutronFloatingIPManager floating ips served by Neutron, pools are external networks.
//Releasing an address detaches it.
type NeutronFloatingIPManager struct {
	network     *gc.ServiceClient
	defaultPool string
}

//RequiresDetach returns false
func (mgr *NeutronFloatingIPManager) RequiresDetach() bool {
	return false
}

func (mgr *NeutronFloatingIPManager) networkID(name string) (string, error) {
	page, err := networks.List(mgr.network, networks.ListOpts{Name: name}).AllPages()
	if err != nil {
		return "", ProviderError(err)
	}
	l, err := networks.ExtractNetworks(page)
	if err != nil {
		return "", ProviderError(err)
	}
	switch len(l) {
	case 0:
		return "", api.NewNotFoundError(nil, "network", name)
	case 1:
		return l[0].ID, nil
	default:
		return "", errors.Errorf("several networks are named %s", name)
	}
}

//AllocateFromPool allocates a floating ip on the external network named pool
func (mgr *NeutronFloatingIPManager) AllocateFromPool(pool string) (*api.FloatingIP, error) {
	id, err := mgr.networkID(pool)
	if err != nil {
		return nil, errors.Wrapf(err, "error allocating floating ip from pool %s", pool)
	}
	ip, err := neutronips.Create(mgr.network, neutronips.CreateOpts{FloatingNetworkID: id}).Extract()
	if err != nil {
		return nil, errors.Wrapf(classify(err, "floating ip", pool), "error allocating floating ip from pool %s", pool)
	}
	return &api.FloatingIP{
		ID:      ip.ID,
		Address: ip.FloatingIP,
		Pool:    pool,
		FixedIP: ip.FixedIP,
	}, nil
}

//Create allocates a floating ip on the configured external network
func (mgr *NeutronFloatingIPManager) Create() (*api.FloatingIP, error) {
	if mgr.defaultPool == "" {
		return nil, api.NewResourceExhaustedError(errNoDefaultPool, "floating ip")
	}
	return mgr.AllocateFromPool(mgr.defaultPool)
}

func (mgr *NeutronFloatingIPManager) ports(opts ports.ListOpts) ([]ports.Port, error) {
	page, err := ports.List(mgr.network, opts).AllPages()
	if err != nil {
		return nil, ProviderError(err)
	}
	return ports.ExtractPorts(page)
}

//List lists the floating ips of the tenant, Pool holds the id of the external network
func (mgr *NeutronFloatingIPManager) List() ([]api.FloatingIP, error) {
	page, err := neutronips.List(mgr.network, neutronips.ListOpts{}).AllPages()
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing floating ips")
	}
	l, err := neutronips.ExtractFloatingIPs(page)
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing floating ips")
	}
	devices := map[string]string{}
	for _, ip := range l {
		if ip.PortID == "" {
			continue
		}
		portList, err := mgr.ports(ports.ListOpts{})
		if err != nil {
			return nil, errors.Wrap(err, "error listing floating ips")
		}
		for _, p := range portList {
			devices[p.ID] = p.DeviceID
		}
		break
	}
	return neutronFloatingIPs(l, devices), nil
}

func neutronFloatingIPs(l []neutronips.FloatingIP, devices map[string]string) []api.FloatingIP {
	var res []api.FloatingIP
	for _, ip := range l {
		res = append(res, api.FloatingIP{
			ID:       ip.ID,
			Address:  ip.FloatingIP,
			Pool:     ip.FloatingNetworkID,
			ServerID: devices[ip.PortID],
			FixedIP:  ip.FixedIP,
		})
	}
	return res
}

//Associate attaches ip to the first port of a server
func (mgr *NeutronFloatingIPManager) Associate(ip api.FloatingIP, serverID string) error {
	portList, err := mgr.ports(ports.ListOpts{DeviceID: serverID})
	if err != nil {
		return errors.Wrapf(err, "error associating floating ip %s", ip.Address)
	}
	if len(portList) == 0 {
		return api.NewNotFoundError(nil, "server port", serverID)
	}
	portID := portList[0].ID
	_, err = neutronips.Update(mgr.network, ip.ID, neutronips.UpdateOpts{PortID: &portID}).Extract()
	if err != nil {
		return errors.Wrapf(classify(err, "floating ip", ip.ID), "error associating floating ip %s", ip.Address)
	}
	return nil
}

//Dissociate detaches ip from its port
func (mgr *NeutronFloatingIPManager) Dissociate(ip api.FloatingIP) error {
	//an empty port id is sent as null, a nil one is omitted
	noPort := ""
	_, err := neutronips.Update(mgr.network, ip.ID, neutronips.UpdateOpts{PortID: &noPort}).Extract()
	if err != nil {
		return errors.Wrapf(classify(err, "floating ip", ip.ID), "error dissociating floating ip %s", ip.Address)
	}
	return nil
}

//Delete releases a floating ip
func (mgr *NeutronFloatingIPManager) Delete(id string) error {
	err := neutronips.Delete(mgr.network, id).ExtractErr()
	if err != nil {
		return errors.Wrap(classify(err, "floating ip", id), "error releasing floating ip")
	}
	return nil
}
