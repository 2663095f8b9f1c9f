package aws

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
)

//ElasticIPManager floating ips implemented with VPC Elastic IPs.
//Pools are public IPv4 pools (BYOIP), the default pool is Amazon's.
type ElasticIPManager struct {
	ec2 ec2iface.EC2API
}

func floatingIP(addr *ec2.Address) *api.FloatingIP {
	ip := &api.FloatingIP{
		ID:       aws.StringValue(addr.AllocationId),
		Address:  aws.StringValue(addr.PublicIp),
		Pool:     aws.StringValue(addr.PublicIpv4Pool),
		ServerID: aws.StringValue(addr.InstanceId),
		FixedIP:  aws.StringValue(addr.PrivateIpAddress),
	}
	//an address associated with a network interface only is reported attached to the interface
	if ip.ServerID == "" && addr.AssociationId != nil {
		ip.ServerID = aws.StringValue(addr.NetworkInterfaceId)
		if ip.ServerID == "" {
			ip.ServerID = aws.StringValue(addr.AssociationId)
		}
	}
	return ip
}

//RequiresDetach returns true, an associated address cannot be released
func (mgr *ElasticIPManager) RequiresDetach() bool {
	return true
}

func (mgr *ElasticIPManager) allocate(input *ec2.AllocateAddressInput, pool string) (*api.FloatingIP, error) {
	out, err := mgr.ec2.AllocateAddress(input)
	if err != nil {
		return nil, errors.Wrapf(classify(err, "elastic ip", pool), "error allocating elastic ip from pool %s", pool)
	}
	return &api.FloatingIP{
		ID:      aws.StringValue(out.AllocationId),
		Address: aws.StringValue(out.PublicIp),
		Pool:    aws.StringValue(out.PublicIpv4Pool),
	}, nil
}

//AllocateFromPool allocates an elastic ip from a public IPv4 pool
func (mgr *ElasticIPManager) AllocateFromPool(pool string) (*api.FloatingIP, error) {
	return mgr.allocate(&ec2.AllocateAddressInput{
		Domain:         aws.String(ec2.DomainTypeVpc),
		PublicIpv4Pool: aws.String(pool),
	}, pool)
}

//Create allocates an elastic ip from Amazon's pool
func (mgr *ElasticIPManager) Create() (*api.FloatingIP, error) {
	return mgr.allocate(&ec2.AllocateAddressInput{
		Domain: aws.String(ec2.DomainTypeVpc),
	}, "amazon")
}

func (mgr *ElasticIPManager) describe(input *ec2.DescribeAddressesInput) ([]*ec2.Address, error) {
	out, err := mgr.ec2.DescribeAddresses(input)
	if err != nil {
		return nil, err
	}
	return out.Addresses, nil
}

//List lists the VPC elastic ips
func (mgr *ElasticIPManager) List() ([]api.FloatingIP, error) {
	addrs, err := mgr.describe(&ec2.DescribeAddressesInput{
		Filters: []*ec2.Filter{filter("domain", ec2.DomainTypeVpc)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "error listing elastic ips")
	}
	var res []api.FloatingIP
	for _, a := range addrs {
		res = append(res, *floatingIP(a))
	}
	return res, nil
}

//Associate attaches an elastic ip to an instance
func (mgr *ElasticIPManager) Associate(ip api.FloatingIP, serverID string) error {
	_, err := mgr.ec2.AssociateAddress(&ec2.AssociateAddressInput{
		AllocationId: aws.String(ip.ID),
		InstanceId:   aws.String(serverID),
	})
	if err != nil {
		return errors.Wrapf(classify(err, "server", serverID), "error associating elastic ip %s", ip.Address)
	}
	return nil
}

//Dissociate detaches an elastic ip, nothing is done if it is not associated
func (mgr *ElasticIPManager) Dissociate(ip api.FloatingIP) error {
	addrs, err := mgr.describe(&ec2.DescribeAddressesInput{
		AllocationIds: []*string{aws.String(ip.ID)},
	})
	if err != nil {
		return errors.Wrapf(classify(err, "elastic ip", ip.ID), "error dissociating elastic ip %s", ip.Address)
	}
	for _, a := range addrs {
		if a.AssociationId == nil {
			continue
		}
		_, err = mgr.ec2.DisassociateAddress(&ec2.DisassociateAddressInput{
			AssociationId: a.AssociationId,
		})
		if err != nil && !isNotFound(err) {
			return errors.Wrapf(err, "error dissociating elastic ip %s", ip.Address)
		}
	}
	return nil
}

//Delete releases an elastic ip
func (mgr *ElasticIPManager) Delete(id string) error {
	_, err := mgr.ec2.ReleaseAddress(&ec2.ReleaseAddressInput{
		AllocationId: aws.String(id),
	})
	if err != nil {
		return errors.Wrap(classify(err, "elastic ip", id), "error releasing elastic ip")
	}
	return nil
}
