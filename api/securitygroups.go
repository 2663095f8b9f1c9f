package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SebastienDorgan/anynodes/iputils"
)

//Protocol valid options are tcp, udp or icmp
type Protocol string

const (
	//ProtocolTCP const
	ProtocolTCP Protocol = "tcp"
	//ProtocolUDP const
	ProtocolUDP Protocol = "udp"
	//ProtocolICMP const
	ProtocolICMP Protocol = "icmp"
)

//PortRange defines a port range
type PortRange struct {
	// The minimum port number in the range that is matched by the rule.
	// If the protocol is ICMP, this value must be an ICMP type or -1
	From int

	// The maximum port number in the range that is matched by the rule.
	// If the protocol is ICMP, this value must be an ICMP code or -1
	To int
}

//IngressPermission an ingress rule: traffic matching protocol and ports is allowed from
//the CIDRs and from members of the peer groups.
//Use NewIngressPermission to build one.
type IngressPermission struct {
	Protocol     Protocol
	PortRange    PortRange
	CIDRs        []string
	PeerGroupIDs []string
}

func checkPortRange(protocol Protocol, r PortRange) error {
	lowest := 0
	if protocol == ProtocolICMP {
		lowest = -1
	}
	if r.From < lowest || r.To < lowest || r.From > 65535 || r.To > 65535 {
		return fmt.Errorf("port range %d-%d out of bounds", r.From, r.To)
	}
	if r.From > r.To {
		return fmt.Errorf("invalid port range %d-%d", r.From, r.To)
	}
	return nil
}

//NewIngressPermission validates and builds an IngressPermission
func NewIngressPermission(protocol Protocol, from int, to int, cidrs []string, peerGroupIDs []string) (IngressPermission, error) {
	switch protocol {
	case ProtocolTCP, ProtocolUDP, ProtocolICMP:
	default:
		return IngressPermission{}, fmt.Errorf("invalid protocol '%s'", protocol)
	}
	r := PortRange{From: from, To: to}
	if err := checkPortRange(protocol, r); err != nil {
		return IngressPermission{}, err
	}
	for _, cidr := range cidrs {
		if err := iputils.ValidateCIDR(cidr); err != nil {
			return IngressPermission{}, err
		}
	}
	for _, id := range peerGroupIDs {
		if strings.TrimSpace(id) == "" {
			return IngressPermission{}, fmt.Errorf("empty peer group id")
		}
	}
	if len(cidrs) == 0 && len(peerGroupIDs) == 0 {
		return IngressPermission{}, fmt.Errorf("ingress permission needs a source")
	}
	return IngressPermission{
		Protocol:     protocol,
		PortRange:    r,
		CIDRs:        sortedCopy(cidrs),
		PeerGroupIDs: sortedCopy(peerGroupIDs),
	}, nil
}

func sortedCopy(l []string) []string {
	if len(l) == 0 {
		return nil
	}
	res := append([]string(nil), l...)
	sort.Strings(res)
	return res
}

//Covers tells if p allows at least everything other allows
func (p *IngressPermission) Covers(other IngressPermission) bool {
	if p.Protocol != other.Protocol {
		return false
	}
	if p.PortRange.From > other.PortRange.From || p.PortRange.To < other.PortRange.To {
		return false
	}
	return containsAll(p.CIDRs, other.CIDRs) && containsAll(p.PeerGroupIDs, other.PeerGroupIDs)
}

func containsAll(set []string, values []string) bool {
	for _, v := range values {
		found := false
		for _, s := range set {
			if s == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

//SecurityGroup defines security groups properties
type SecurityGroup struct {
	ID          string
	Region      string
	Name        string
	Description string
	TenantID    string
	Permissions []IngressPermission
}

//Allows tells if one of the group permissions covers p
func (g *SecurityGroup) Allows(p IngressPermission) bool {
	for _, perm := range g.Permissions {
		if perm.Covers(p) {
			return true
		}
	}
	return false
}

//CreationOutcome tells how a create call ended
type CreationOutcome int

const (
	//Created the resource was created by the call
	Created CreationOutcome = iota
	//AlreadyExists a resource with the same name already existed, nothing was created
	AlreadyExists
)

//SecurityGroupCreation result of SecurityGroupManager.Create.
//Group is nil when Outcome is AlreadyExists.
type SecurityGroupCreation struct {
	Outcome CreationOutcome
	Group   *SecurityGroup
}

//SecurityGroupManager defines security group management functions a provider region must offer
type SecurityGroupManager interface {
	//Create a security group, a name collision is reported as AlreadyExists, not as an error
	Create(name string, description string) (*SecurityGroupCreation, error)
	//Delete a security group
	Delete(id string) error
	//List security groups with their permissions
	List() ([]SecurityGroup, error)
	//Get security group, returns a NotFoundError if it does not exist
	Get(id string) (*SecurityGroup, error)
	//AuthorizeIngress adds an ingress permission to a security group
	AuthorizeIngress(groupID string, permission IngressPermission) error
}
