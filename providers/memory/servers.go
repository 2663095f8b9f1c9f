package memory

import (
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/iputils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

//first private address handed out to servers
const privateNetworkBase = 0x0a000002 //10.0.0.2

//ServerManager in-memory api.ServerManager
type ServerManager struct {
	provider *Provider
	region   *region
}

func copyNode(n *api.Node) *api.Node {
	c := *n
	c.Tags = copyStrings(n.Tags)
	c.PublicAddresses = copyStrings(n.PublicAddresses)
	c.PrivateAddresses = copyStrings(n.PrivateAddresses)
	c.SecurityGroups = copyStrings(n.SecurityGroups)
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

//Create creates a pending server
func (mgr *ServerManager) Create(options api.CreateServerOptions) (*api.Node, error) {
	if h := mgr.provider.currentHooks(); h.CreateServer != nil {
		if err := h.CreateServer(mgr.region.name, options); err != nil {
			return nil, err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	for _, name := range options.SecurityGroups {
		if _, ok := mgr.region.securityGroupNamed(name); !ok {
			return nil, api.NewNotFoundError(nil, "security group", name)
		}
	}
	if options.KeyName != "" {
		if _, ok := mgr.region.keyPairs[options.KeyName]; !ok {
			return nil, api.NewNotFoundError(nil, "key pair", options.KeyName)
		}
	}
	id := uuid.New().String()
	private := iputils.Utoi(privateNetworkBase + mgr.region.nextPrivateIP)
	mgr.region.nextPrivateIP++
	node := &api.Node{
		ID:               api.RegionAndID{Region: mgr.region.name, ID: id},
		Name:             options.Name,
		Group:            options.Metadata[api.MetadataGroupKey],
		Status:           api.NodePending,
		Tags:             api.TagsFromMetadata(options.Metadata),
		Metadata:         options.Metadata,
		PrivateAddresses: []string{private.String()},
		KeyName:          options.KeyName,
		SecurityGroups:   options.SecurityGroups,
		Location:         mgr.provider.locations.Zone(mgr.region.name, options.AvailabilityZone),
	}
	mgr.region.servers[id] = copyNode(node)
	mgr.region.bootPolls[id] = mgr.provider.cfg.BootPolls
	return node, nil
}

//Get returns a server, a pending server starts running after the configured number of polls
func (mgr *ServerManager) Get(id string) (*api.Node, error) {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	n, ok := mgr.region.servers[id]
	if !ok {
		return nil, api.NewNotFoundError(nil, "server", id)
	}
	if n.Status == api.NodePending {
		if mgr.region.bootPolls[id] <= 0 {
			n.Status = api.NodeRunning
		}
		mgr.region.bootPolls[id]--
	}
	return copyNode(n), nil
}

//List lists the servers of the region sorted by id
func (mgr *ServerManager) List() ([]api.Node, error) {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	var nodes []api.Node
	for _, n := range mgr.region.servers {
		nodes = append(nodes, *copyNode(n))
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID.ID < nodes[j].ID.ID
	})
	return nodes, nil
}

//Delete deletes a server, its floating ips are detached
func (mgr *ServerManager) Delete(id string) (bool, error) {
	if h := mgr.provider.currentHooks(); h.DeleteServer != nil {
		if err := h.DeleteServer(mgr.region.name, id); err != nil {
			return false, err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	if _, ok := mgr.region.servers[id]; !ok {
		return false, nil
	}
	for _, ip := range mgr.region.floatingIPs {
		if ip.ServerID == id {
			mgr.region.detach(ip)
		}
	}
	delete(mgr.region.servers, id)
	delete(mgr.region.bootPolls, id)
	return true, nil
}

//SetStatus forces the status of a server
func (mgr *ServerManager) SetStatus(id string, status api.NodeStatus) error {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	n, ok := mgr.region.servers[id]
	if !ok {
		return api.NewNotFoundError(nil, "server", id)
	}
	n.Status = status
	return nil
}

func (r *region) securityGroupNamed(name string) (*api.SecurityGroup, bool) {
	for _, sg := range r.securityGroups {
		if sg.Name == name {
			return sg, true
		}
	}
	return nil, false
}

func (r *region) serverUsesGroup(name string) bool {
	for _, n := range r.servers {
		for _, sg := range n.SecurityGroups {
			if sg == name {
				return true
			}
		}
	}
	return false
}

func errServerNotFound(id string) error {
	return errors.WithStack(api.NewNotFoundError(nil, "server", id))
}
