package openstack

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/iputils"
	gc "github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/secgroups"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/security/groups"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/security/rules"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//NeutronSecurityGroupManager security groups served by Neutron
type NeutronSecurityGroupManager struct {
	network *gc.ServiceClient
	region  string
}

//neutronPermission converts an IPv4 ingress rule, other rules are ignored
func neutronPermission(r rules.SecGroupRule) (api.IngressPermission, bool) {
	if r.Direction != string(rules.DirIngress) || r.EtherType != string(rules.EtherType4) {
		return api.IngressPermission{}, false
	}
	protocol := api.Protocol(r.Protocol)
	from, to := r.PortRangeMin, r.PortRangeMax
	if from == 0 && to == 0 {
		//Neutron stores "any port" as an empty range
		if protocol == api.ProtocolICMP {
			from, to = -1, -1
		} else {
			to = 65535
		}
	}
	var cidrs, peers []string
	switch {
	case r.RemoteGroupID != "":
		peers = []string{r.RemoteGroupID}
	case r.RemoteIPPrefix != "":
		cidrs = []string{r.RemoteIPPrefix}
	default:
		cidrs = []string{iputils.AnyIPv4}
	}
	p, err := api.NewIngressPermission(protocol, from, to, cidrs, peers)
	if err != nil {
		return api.IngressPermission{}, false
	}
	return p, true
}

func (mgr *NeutronSecurityGroupManager) group(g *groups.SecGroup) *api.SecurityGroup {
	sg := &api.SecurityGroup{
		ID:          g.ID,
		Region:      mgr.region,
		Name:        g.Name,
		Description: g.Description,
		TenantID:    g.TenantID,
	}
	for _, r := range g.Rules {
		if p, ok := neutronPermission(r); ok {
			sg.Permissions = append(sg.Permissions, p)
		}
	}
	return sg
}

func (mgr *NeutronSecurityGroupManager) list(opts groups.ListOpts) ([]api.SecurityGroup, error) {
	page, err := groups.List(mgr.network, opts).AllPages()
	if err != nil {
		return nil, ProviderError(err)
	}
	l, err := groups.ExtractGroups(page)
	if err != nil {
		return nil, ProviderError(err)
	}
	var res []api.SecurityGroup
	for i := range l {
		res = append(res, *mgr.group(&l[i]))
	}
	return res, nil
}

//Create creates a security group. Neutron accepts duplicated names so collisions are checked first.
func (mgr *NeutronSecurityGroupManager) Create(name string, description string) (*api.SecurityGroupCreation, error) {
	existing, err := mgr.list(groups.ListOpts{Name: name})
	if err != nil {
		return nil, errors.Wrapf(err, "error creating security group %s", name)
	}
	if len(existing) > 0 {
		return &api.SecurityGroupCreation{Outcome: api.AlreadyExists}, nil
	}
	g, err := groups.Create(mgr.network, groups.CreateOpts{
		Name:        name,
		Description: description,
	}).Extract()
	if err != nil {
		if isAlreadyExists(err) {
			return &api.SecurityGroupCreation{Outcome: api.AlreadyExists}, nil
		}
		return nil, errors.Wrapf(ProviderError(err), "error creating security group %s", name)
	}
	return &api.SecurityGroupCreation{Outcome: api.Created, Group: mgr.group(g)}, nil
}

//Delete deletes a security group
func (mgr *NeutronSecurityGroupManager) Delete(id string) error {
	err := groups.Delete(mgr.network, id).ExtractErr()
	if err != nil {
		return errors.Wrap(classify(err, "security group", id), "error deleting security group")
	}
	return nil
}

//List lists security groups
func (mgr *NeutronSecurityGroupManager) List() ([]api.SecurityGroup, error) {
	res, err := mgr.list(groups.ListOpts{})
	if err != nil {
		return nil, errors.Wrap(err, "error listing security groups")
	}
	return res, nil
}

//Get returns a security group
func (mgr *NeutronSecurityGroupManager) Get(id string) (*api.SecurityGroup, error) {
	g, err := groups.Get(mgr.network, id).Extract()
	if err != nil {
		return nil, errors.Wrap(classify(err, "security group", id), "error getting security group")
	}
	return mgr.group(g), nil
}

func neutronRuleOpts(groupID string, p api.IngressPermission) []rules.CreateOpts {
	base := rules.CreateOpts{
		Direction:  rules.DirIngress,
		EtherType:  rules.EtherType4,
		SecGroupID: groupID,
		Protocol:   rules.RuleProtocol(p.Protocol),
	}
	//-1 (any icmp type) is expressed by leaving the range empty
	if p.PortRange.From >= 0 {
		base.PortRangeMin = p.PortRange.From
	}
	if p.PortRange.To >= 0 {
		base.PortRangeMax = p.PortRange.To
	}
	var res []rules.CreateOpts
	for _, cidr := range p.CIDRs {
		opts := base
		opts.RemoteIPPrefix = cidr
		res = append(res, opts)
	}
	for _, peer := range p.PeerGroupIDs {
		opts := base
		opts.RemoteGroupID = peer
		res = append(res, opts)
	}
	return res
}

//AuthorizeIngress creates one rule per source, rules that already exist are ignored
func (mgr *NeutronSecurityGroupManager) AuthorizeIngress(groupID string, permission api.IngressPermission) error {
	for _, opts := range neutronRuleOpts(groupID, permission) {
		_, err := rules.Create(mgr.network, opts).Extract()
		if err != nil && !isDuplicateRule(err) {
			return errors.Wrapf(classify(err, "security group", groupID), "error authorizing ingress on security group %s", groupID)
		}
	}
	return nil
}

//NovaSecurityGroupManager security groups served by the Nova os-security-groups extension
type NovaSecurityGroupManager struct {
	compute *gc.ServiceClient
	region  string
	log     logrus.FieldLogger
}

//novaPeer resolves the group a rule refers to by name. Nova only reports the peer name and tenant
//so a name shared by several groups of the tenant cannot be resolved.
func novaPeer(ref secgroups.Group, all []secgroups.SecurityGroup) (string, bool) {
	id := ""
	for _, g := range all {
		if g.Name != ref.Name || (ref.TenantID != "" && g.TenantID != ref.TenantID) {
			continue
		}
		if id != "" {
			return "", false
		}
		id = g.ID
	}
	return id, id != ""
}

//novaPermissions converts the rules of g, rules referring to an unresolvable peer are dropped
func novaPermissions(g *secgroups.SecurityGroup, all []secgroups.SecurityGroup, log logrus.FieldLogger) []api.IngressPermission {
	var res []api.IngressPermission
	for _, r := range g.Rules {
		var cidrs, peers []string
		switch {
		case r.Group.Name != "":
			id, ok := novaPeer(r.Group, all)
			if !ok {
				log.WithFields(logrus.Fields{
					"group": g.ID,
					"rule":  r.ID,
					"peer":  r.Group.Name,
				}).Warn("Dropping rule referring to an unresolvable security group")
				continue
			}
			peers = []string{id}
		case r.IPRange.CIDR != "":
			cidrs = []string{r.IPRange.CIDR}
		default:
			continue
		}
		p, err := api.NewIngressPermission(api.Protocol(r.IPProtocol), r.FromPort, r.ToPort, cidrs, peers)
		if err != nil {
			log.WithField("rule", r.ID).WithError(err).Debug("Ignoring unsupported rule")
			continue
		}
		res = append(res, p)
	}
	return res
}

func (mgr *NovaSecurityGroupManager) group(g *secgroups.SecurityGroup, all []secgroups.SecurityGroup) *api.SecurityGroup {
	return &api.SecurityGroup{
		ID:          g.ID,
		Region:      mgr.region,
		Name:        g.Name,
		Description: g.Description,
		TenantID:    g.TenantID,
		Permissions: novaPermissions(g, all, mgr.log),
	}
}

func (mgr *NovaSecurityGroupManager) groups() ([]secgroups.SecurityGroup, error) {
	page, err := secgroups.List(mgr.compute).AllPages()
	if err != nil {
		return nil, ProviderError(err)
	}
	l, err := secgroups.ExtractSecurityGroups(page)
	if err != nil {
		return nil, ProviderError(err)
	}
	return l, nil
}

//Create creates a security group
func (mgr *NovaSecurityGroupManager) Create(name string, description string) (*api.SecurityGroupCreation, error) {
	g, err := secgroups.Create(mgr.compute, secgroups.CreateOpts{
		Name:        name,
		Description: description,
	}).Extract()
	if err != nil {
		if isAlreadyExists(err) {
			return &api.SecurityGroupCreation{Outcome: api.AlreadyExists}, nil
		}
		return nil, errors.Wrapf(ProviderError(err), "error creating security group %s", name)
	}
	return &api.SecurityGroupCreation{Outcome: api.Created, Group: mgr.group(g, nil)}, nil
}

//Delete deletes a security group
func (mgr *NovaSecurityGroupManager) Delete(id string) error {
	err := secgroups.Delete(mgr.compute, id).ExtractErr()
	if err != nil {
		return errors.Wrap(classify(err, "security group", id), "error deleting security group")
	}
	return nil
}

//List lists security groups
func (mgr *NovaSecurityGroupManager) List() ([]api.SecurityGroup, error) {
	l, err := mgr.groups()
	if err != nil {
		return nil, errors.Wrap(err, "error listing security groups")
	}
	var res []api.SecurityGroup
	for i := range l {
		res = append(res, *mgr.group(&l[i], l))
	}
	return res, nil
}

//Get returns a security group
func (mgr *NovaSecurityGroupManager) Get(id string) (*api.SecurityGroup, error) {
	g, err := secgroups.Get(mgr.compute, id).Extract()
	if err != nil {
		return nil, errors.Wrap(classify(err, "security group", id), "error getting security group")
	}
	var all []secgroups.SecurityGroup
	for _, r := range g.Rules {
		if r.Group.Name != "" {
			all, err = mgr.groups()
			if err != nil {
				return nil, errors.Wrap(err, "error getting security group")
			}
			break
		}
	}
	return mgr.group(g, all), nil
}

func novaRuleOpts(groupID string, p api.IngressPermission) []secgroups.CreateRuleOpts {
	base := secgroups.CreateRuleOpts{
		ParentGroupID: groupID,
		FromPort:      p.PortRange.From,
		ToPort:        p.PortRange.To,
		IPProtocol:    string(p.Protocol),
	}
	var res []secgroups.CreateRuleOpts
	for _, cidr := range p.CIDRs {
		opts := base
		opts.CIDR = cidr
		res = append(res, opts)
	}
	for _, peer := range p.PeerGroupIDs {
		opts := base
		opts.FromGroupID = peer
		res = append(res, opts)
	}
	return res
}

//AuthorizeIngress creates one rule per source, rules that already exist are ignored
func (mgr *NovaSecurityGroupManager) AuthorizeIngress(groupID string, permission api.IngressPermission) error {
	for _, opts := range novaRuleOpts(groupID, permission) {
		_, err := secgroups.CreateRule(mgr.compute, opts).Extract()
		if err != nil && !isDuplicateRule(err) {
			return errors.Wrapf(classify(err, "security group", groupID), "error authorizing ingress on security group %s", groupID)
		}
	}
	return nil
}
