package memory

import (
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

//Tenant owner of the in-memory security groups
const Tenant = "memory"

//SecurityGroupManager in-memory api.SecurityGroupManager
type SecurityGroupManager struct {
	provider *Provider
	region   *region
}

func copySecurityGroup(sg *api.SecurityGroup) *api.SecurityGroup {
	c := *sg
	c.Permissions = make([]api.IngressPermission, len(sg.Permissions))
	for i, p := range sg.Permissions {
		p.CIDRs = copyStrings(p.CIDRs)
		p.PeerGroupIDs = copyStrings(p.PeerGroupIDs)
		c.Permissions[i] = p
	}
	return &c
}

//Create creates a security group, AlreadyExists if the name is taken
func (mgr *SecurityGroupManager) Create(name string, description string) (*api.SecurityGroupCreation, error) {
	if h := mgr.provider.currentHooks(); h.CreateSecurityGroup != nil {
		if err := h.CreateSecurityGroup(mgr.region.name, name); err != nil {
			return nil, err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	if _, ok := mgr.region.securityGroupNamed(name); ok {
		return &api.SecurityGroupCreation{Outcome: api.AlreadyExists}, nil
	}
	sg := &api.SecurityGroup{
		ID:          uuid.New().String(),
		Region:      mgr.region.name,
		Name:        name,
		Description: description,
		TenantID:    Tenant,
	}
	mgr.region.securityGroups[sg.ID] = sg
	return &api.SecurityGroupCreation{Outcome: api.Created, Group: copySecurityGroup(sg)}, nil
}

//Delete deletes a security group, a group used by a server cannot be deleted
func (mgr *SecurityGroupManager) Delete(id string) error {
	if h := mgr.provider.currentHooks(); h.DeleteSecurityGroup != nil {
		if err := h.DeleteSecurityGroup(mgr.region.name, id); err != nil {
			return err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	sg, ok := mgr.region.securityGroups[id]
	if !ok {
		return api.NewNotFoundError(nil, "security group", id)
	}
	if mgr.region.serverUsesGroup(sg.Name) {
		return errors.Errorf("security group %s is in use", sg.Name)
	}
	delete(mgr.region.securityGroups, id)
	return nil
}

//List lists the security groups sorted by name
func (mgr *SecurityGroupManager) List() ([]api.SecurityGroup, error) {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	var groups []api.SecurityGroup
	for _, sg := range mgr.region.securityGroups {
		groups = append(groups, *copySecurityGroup(sg))
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

//Get returns a security group
func (mgr *SecurityGroupManager) Get(id string) (*api.SecurityGroup, error) {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	sg, ok := mgr.region.securityGroups[id]
	if !ok {
		return nil, api.NewNotFoundError(nil, "security group", id)
	}
	return copySecurityGroup(sg), nil
}

//AuthorizeIngress adds permission to a security group, a permission already granted is ignored
func (mgr *SecurityGroupManager) AuthorizeIngress(groupID string, permission api.IngressPermission) error {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	sg, ok := mgr.region.securityGroups[groupID]
	if !ok {
		return api.NewNotFoundError(nil, "security group", groupID)
	}
	for _, peer := range permission.PeerGroupIDs {
		if _, ok := mgr.region.securityGroups[peer]; !ok {
			return api.NewNotFoundError(nil, "security group", peer)
		}
	}
	if sg.Allows(permission) {
		return nil
	}
	sg.Permissions = append(sg.Permissions, permission)
	return nil
}
