package openstack

import (
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	gc "github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-password/password"
)

//ServerManager Nova implementation of api.ServerManager
type ServerManager struct {
	compute   *gc.ServiceClient
	region    string
	networkID string
	locations api.LocationIndex
}

func status(s string) api.NodeStatus {
	switch s {
	case "ACTIVE":
		return api.NodeRunning
	case "BUILD", "REBUILD", "REBOOT", "HARD_REBOOT", "RESIZE", "VERIFY_RESIZE", "REVERT_RESIZE", "MIGRATING", "PASSWORD":
		return api.NodePending
	case "DELETED", "SOFT_DELETED":
		return api.NodeTerminated
	case "ERROR":
		return api.NodeError
	case "PAUSED", "SUSPENDED", "SHUTOFF", "STOPPED", "SHELVED", "SHELVED_OFFLOADED", "RESCUE":
		return api.NodeSuspended
	default:
		return api.NodeUnrecognized
	}
}

//addresses splits the server addresses into public (floating) and private (fixed) ones
func addresses(addrs map[string]interface{}) (public []string, private []string) {
	networks := make([]string, 0, len(addrs))
	for n := range addrs {
		networks = append(networks, n)
	}
	sort.Strings(networks)
	for _, n := range networks {
		list, ok := addrs[n].([]interface{})
		if !ok {
			continue
		}
		for _, a := range list {
			m, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			addr, _ := m["addr"].(string)
			if addr == "" {
				continue
			}
			if t, _ := m["OS-EXT-IPS:type"].(string); t == "floating" {
				public = append(public, addr)
			} else {
				private = append(private, addr)
			}
		}
	}
	return public, private
}

func securityGroupNames(groups []map[string]interface{}) []string {
	var names []string
	seen := map[string]bool{}
	for _, g := range groups {
		name, _ := g["name"].(string)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func (mgr *ServerManager) node(srv *servers.Server) *api.Node {
	public, private := addresses(srv.Addresses)
	return &api.Node{
		ID:               api.RegionAndID{Region: mgr.region, ID: srv.ID},
		Name:             srv.Name,
		Group:            srv.Metadata[api.MetadataGroupKey],
		Status:           status(srv.Status),
		Tags:             api.TagsFromMetadata(srv.Metadata),
		Metadata:         srv.Metadata,
		PublicAddresses:  public,
		PrivateAddresses: private,
		KeyName:          srv.KeyName,
		SecurityGroups:   securityGroupNames(srv.SecurityGroups),
		Location:         mgr.locations[mgr.region],
	}
}

func (mgr *ServerManager) createOpts(options api.CreateServerOptions) servers.CreateOptsBuilder {
	opts := servers.CreateOpts{
		Name:             options.Name,
		ImageRef:         options.ImageID,
		FlavorRef:        options.TemplateID,
		SecurityGroups:   options.SecurityGroups,
		AvailabilityZone: options.AvailabilityZone,
		Metadata:         options.Metadata,
		AdminPass:        password.MustGenerate(16, 5, 5, false, false),
	}
	if mgr.networkID != "" {
		opts.Networks = []servers.Network{{UUID: mgr.networkID}}
	}
	if options.KeyName == "" {
		return opts
	}
	return keypairs.CreateOptsExt{
		CreateOptsBuilder: opts,
		KeyName:           options.KeyName,
	}
}

//Create creates a server
func (mgr *ServerManager) Create(options api.CreateServerOptions) (*api.Node, error) {
	srv, err := servers.Create(mgr.compute, mgr.createOpts(options)).Extract()
	if err != nil {
		return nil, errors.Wrapf(ProviderError(err), "error creating server %s", options.Name)
	}
	//the creation response only holds the id
	return mgr.Get(srv.ID)
}

//Get returns a server
func (mgr *ServerManager) Get(id string) (*api.Node, error) {
	srv, err := servers.Get(mgr.compute, id).Extract()
	if err != nil {
		return nil, errors.Wrapf(classify(err, "server", id), "error getting server")
	}
	return mgr.node(srv), nil
}

//List lists servers
func (mgr *ServerManager) List() ([]api.Node, error) {
	page, err := servers.List(mgr.compute, servers.ListOpts{}).AllPages()
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing servers")
	}
	l, err := servers.ExtractServers(page)
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing servers")
	}
	var res []api.Node
	for i := range l {
		res = append(res, *mgr.node(&l[i]))
	}
	return res, nil
}

//Delete deletes a server
func (mgr *ServerManager) Delete(id string) (bool, error) {
	err := servers.Delete(mgr.compute, id).ExtractErr()
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(ProviderError(err), "error deleting server %s", id)
	}
	return true, nil
}
