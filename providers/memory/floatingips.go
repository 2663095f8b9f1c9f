package memory

import (
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

//FloatingIPManager in-memory api.FloatingIPManager
type FloatingIPManager struct {
	provider *Provider
	region   *region
}

//RequiresDetach tells if an ip must be dissociated before being deleted
func (mgr *FloatingIPManager) RequiresDetach() bool {
	return mgr.provider.cfg.RequiresDetach
}

//AllocateFromPool allocates a floating ip from pool
func (mgr *FloatingIPManager) AllocateFromPool(pool string) (*api.FloatingIP, error) {
	if h := mgr.provider.currentHooks(); h.AllocateFromPool != nil {
		if err := h.AllocateFromPool(mgr.region.name, pool); err != nil {
			return nil, err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	return mgr.allocate(pool)
}

//Create allocates a floating ip from the default pool
func (mgr *FloatingIPManager) Create() (*api.FloatingIP, error) {
	if h := mgr.provider.currentHooks(); h.CreateFloatingIP != nil {
		if err := h.CreateFloatingIP(mgr.region.name); err != nil {
			return nil, err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	if mgr.provider.cfg.DefaultFloatingIPPool == "" {
		return nil, api.NewResourceExhaustedError(errors.New("no default pool"), "floating ip")
	}
	return mgr.allocate(mgr.provider.cfg.DefaultFloatingIPPool)
}

func (mgr *FloatingIPManager) allocate(name string) (*api.FloatingIP, error) {
	p, ok := mgr.region.pools[name]
	if !ok {
		return nil, api.NewNotFoundError(nil, "floating ip pool", name)
	}
	for i := 0; i < p.addresses.Size(); i++ {
		address := p.addresses.Nth(i).String()
		if p.used[address] {
			continue
		}
		p.used[address] = true
		ip := &api.FloatingIP{
			ID:      uuid.New().String(),
			Address: address,
			Pool:    name,
		}
		mgr.region.floatingIPs[ip.ID] = ip
		res := *ip
		return &res, nil
	}
	return nil, api.NewResourceExhaustedError(errors.Errorf("pool %s is empty", name), "floating ip")
}

//List lists the floating ips of the region sorted by address
func (mgr *FloatingIPManager) List() ([]api.FloatingIP, error) {
	if h := mgr.provider.currentHooks(); h.ListFloatingIPs != nil {
		if err := h.ListFloatingIPs(mgr.region.name); err != nil {
			return nil, err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	var ips []api.FloatingIP
	for _, ip := range mgr.region.floatingIPs {
		ips = append(ips, *ip)
	}
	sort.Slice(ips, func(i, j int) bool {
		return ips[i].Address < ips[j].Address
	})
	return ips, nil
}

//Associate attaches ip to a server, an ip attached to another server is moved
func (mgr *FloatingIPManager) Associate(ip api.FloatingIP, serverID string) error {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	stored, ok := mgr.region.floatingIPs[ip.ID]
	if !ok {
		return api.NewNotFoundError(nil, "floating ip", ip.ID)
	}
	server, ok := mgr.region.servers[serverID]
	if !ok {
		return errServerNotFound(serverID)
	}
	if stored.ServerID != "" {
		mgr.region.detach(stored)
	}
	stored.ServerID = serverID
	if len(server.PrivateAddresses) > 0 {
		stored.FixedIP = server.PrivateAddresses[0]
	}
	server.PublicAddresses = append(server.PublicAddresses, stored.Address)
	return nil
}

//Dissociate detaches ip from its server
func (mgr *FloatingIPManager) Dissociate(ip api.FloatingIP) error {
	if h := mgr.provider.currentHooks(); h.Dissociate != nil {
		if err := h.Dissociate(mgr.region.name, ip); err != nil {
			return err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	stored, ok := mgr.region.floatingIPs[ip.ID]
	if !ok {
		return api.NewNotFoundError(nil, "floating ip", ip.ID)
	}
	mgr.region.detach(stored)
	return nil
}

//Delete releases a floating ip
func (mgr *FloatingIPManager) Delete(id string) error {
	if h := mgr.provider.currentHooks(); h.DeleteFloatingIP != nil {
		if err := h.DeleteFloatingIP(mgr.region.name, id); err != nil {
			return err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	stored, ok := mgr.region.floatingIPs[id]
	if !ok {
		return api.NewNotFoundError(nil, "floating ip", id)
	}
	if stored.ServerID != "" {
		if mgr.provider.cfg.RequiresDetach {
			return errors.Errorf("floating ip %s is attached to server %s", stored.Address, stored.ServerID)
		}
		mgr.region.detach(stored)
	}
	delete(mgr.region.pools[stored.Pool].used, stored.Address)
	delete(mgr.region.floatingIPs, id)
	return nil
}

func (r *region) detach(ip *api.FloatingIP) {
	if server, ok := r.servers[ip.ServerID]; ok {
		var addresses []string
		for _, a := range server.PublicAddresses {
			if a != ip.Address {
				addresses = append(addresses, a)
			}
		}
		server.PublicAddresses = addresses
	}
	ip.ServerID = ""
	ip.FixedIP = ""
}
