package compute

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/iputils"
	"github.com/SebastienDorgan/talgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//SecurityGroupProvisioner creates the security group of a node group if it does not exist yet
//and opens the requested ports. Ensure is safe to call concurrently for the same group.
type SecurityGroupProvisioner struct {
	provider    api.Provider
	description string
	log         logrus.FieldLogger
}

//NewSecurityGroupProvisioner creates a SecurityGroupProvisioner, created groups are given description
func NewSecurityGroupProvisioner(provider api.Provider, description string, log logrus.FieldLogger) *SecurityGroupProvisioner {
	return &SecurityGroupProvisioner{
		provider:    provider,
		description: description,
		log:         loggerOrDefault(log),
	}
}

//Ensure returns the security group named key.Name in key.Region, creating it if needed.
//Each port of the key is opened on tcp to the members of the group and to any IPv4 source.
func (p *SecurityGroupProvisioner) Ensure(key SecurityGroupKey) (*api.SecurityGroup, error) {
	mgr, err := p.provider.SecurityGroupManager(key.Region)
	if err != nil {
		return nil, errors.Wrapf(err, "error ensuring security group %s", key.RegionAndName)
	}
	log := p.log.WithFields(logrus.Fields{"region": key.Region, "group": key.Name})

	sg, err := p.createOrReuse(mgr, key.Name, log)
	if err != nil {
		return nil, errors.Wrapf(err, "error ensuring security group %s", key.RegionAndName)
	}
	for _, port := range key.PortList() {
		for _, perm := range ingressFor(sg.ID, port) {
			if sg.Allows(perm) {
				continue
			}
			err = mgr.AuthorizeIngress(sg.ID, perm)
			if err != nil {
				return nil, errors.Wrapf(err, "error opening port %d of security group %s", port, key.RegionAndName)
			}
		}
	}
	sg, err = mgr.Get(sg.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading security group %s", key.RegionAndName)
	}
	sg.Region = key.Region
	return sg, nil
}

func (p *SecurityGroupProvisioner) createOrReuse(mgr api.SecurityGroupManager, name string, log logrus.FieldLogger) (*api.SecurityGroup, error) {
	res, err := mgr.Create(name, p.description)
	if err != nil {
		return nil, err
	}
	if res.Outcome == api.Created {
		log.Debug("security group created")
		return res.Group, nil
	}
	log.Debug("security group already exists, reusing it")
	groups, err := mgr.List()
	if err != nil {
		return nil, err
	}
	i := talgo.FindFirst(len(groups), func(i int) bool {
		return groups[i].Name == name
	})
	if i < 0 || i >= len(groups) {
		return nil, errors.Errorf("security group %s reported as existing but not found", name)
	}
	return &groups[i], nil
}

func ingressFor(groupID string, port int) []api.IngressPermission {
	var perms []api.IngressPermission
	self, err := api.NewIngressPermission(api.ProtocolTCP, port, port, nil, []string{groupID})
	if err == nil {
		perms = append(perms, self)
	}
	world, err := api.NewIngressPermission(api.ProtocolTCP, port, port, []string{iputils.AnyIPv4}, nil)
	if err == nil {
		perms = append(perms, world)
	}
	return perms
}
