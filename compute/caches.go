package compute

import (
	"sort"
	"strconv"
	"strings"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/cache"
	"github.com/SebastienDorgan/talgo"
	"github.com/pkg/errors"
)

//SecurityGroupKey identifies a security group together with the ports it must open
type SecurityGroupKey struct {
	api.RegionAndName
	//Ports canonical comma separated list of ports
	Ports string
}

//NewSecurityGroupKey builds a SecurityGroupKey, ports are sorted and deduplicated
func NewSecurityGroupKey(region string, name string, ports []int) SecurityGroupKey {
	sorted := append([]int(nil), ports...)
	sort.Ints(sorted)
	var tokens []string
	for i, p := range sorted {
		if i > 0 && sorted[i-1] == p {
			continue
		}
		tokens = append(tokens, strconv.Itoa(p))
	}
	return SecurityGroupKey{
		RegionAndName: api.RegionAndName{Region: region, Name: name},
		Ports:         strings.Join(tokens, ","),
	}
}

//PortList decodes the ports of the key
func (k SecurityGroupKey) PortList() []int {
	if k.Ports == "" {
		return nil
	}
	var ports []int
	for _, t := range strings.Split(k.Ports, ",") {
		p, err := strconv.Atoi(t)
		if err == nil {
			ports = append(ports, p)
		}
	}
	return ports
}

//FloatingIPCache floating ips attached to a node
type FloatingIPCache = cache.LoadingCache[api.RegionAndID, []api.FloatingIP]

//SecurityGroupCache security groups ensured with their ports
type SecurityGroupCache = cache.LoadingCache[SecurityGroupKey, *api.SecurityGroup]

//KeyPairCache key pairs generated for a node group
type KeyPairCache = cache.LoadingCache[api.RegionAndName, *api.KeyPair]

//NewFloatingIPCache creates the cache of the floating ips attached to nodes.
//A region without floating ip support loads an empty list.
func NewFloatingIPCache(provider api.Provider, size int) (*FloatingIPCache, error) {
	return cache.New("FLOATINGIP", size, func(id api.RegionAndID) ([]api.FloatingIP, error) {
		mgr, err := provider.FloatingIPManager(id.Region)
		if errors.Is(err, api.ErrCapabilityUnavailable) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		ips, err := mgr.List()
		if err != nil {
			return nil, errors.Wrapf(err, "error listing floating ips of node %s", id)
		}
		var attached []api.FloatingIP
		for _, i := range talgo.FindAll(len(ips), func(i int) bool { return ips[i].ServerID == id.ID }) {
			attached = append(attached, ips[i])
		}
		return attached, nil
	})
}

//NewSecurityGroupCache creates the security group cache, misses are served by the provisioner
func NewSecurityGroupCache(provisioner *SecurityGroupProvisioner, size int) (*SecurityGroupCache, error) {
	return cache.New("SECURITYGROUP", size, provisioner.Ensure)
}

//NewKeyPairCache creates the key pair cache, misses are served by the provisioner
func NewKeyPairCache(provisioner *KeyPairProvisioner, size int) (*KeyPairCache, error) {
	return cache.New("KEYPAIR", size, provisioner.Ensure)
}
