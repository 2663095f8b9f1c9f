package aws

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
)

//SecurityGroupManager EC2 implementation of api.SecurityGroupManager
type SecurityGroupManager struct {
	ec2    ec2iface.EC2API
	region string
	vpcID  string
}

//permissions converts EC2 ip permissions, rules on all protocols ("-1") are not represented
func permissions(in []*ec2.IpPermission) []api.IngressPermission {
	var res []api.IngressPermission
	for _, p := range in {
		var cidrs, peers []string
		for _, r := range p.IpRanges {
			cidrs = append(cidrs, aws.StringValue(r.CidrIp))
		}
		for _, g := range p.UserIdGroupPairs {
			peers = append(peers, aws.StringValue(g.GroupId))
		}
		perm, err := api.NewIngressPermission(
			api.Protocol(aws.StringValue(p.IpProtocol)),
			int(aws.Int64Value(p.FromPort)),
			int(aws.Int64Value(p.ToPort)),
			cidrs, peers)
		if err != nil {
			continue
		}
		res = append(res, perm)
	}
	return res
}

func (mgr *SecurityGroupManager) group(g *ec2.SecurityGroup) *api.SecurityGroup {
	return &api.SecurityGroup{
		ID:          aws.StringValue(g.GroupId),
		Region:      mgr.region,
		Name:        aws.StringValue(g.GroupName),
		Description: aws.StringValue(g.Description),
		TenantID:    aws.StringValue(g.OwnerId),
		Permissions: permissions(g.IpPermissions),
	}
}

//Create creates a security group
func (mgr *SecurityGroupManager) Create(name string, description string) (*api.SecurityGroupCreation, error) {
	input := &ec2.CreateSecurityGroupInput{
		Description: aws.String(description),
		GroupName:   aws.String(name),
	}
	if mgr.vpcID != "" {
		input.VpcId = aws.String(mgr.vpcID)
	}
	out, err := mgr.ec2.CreateSecurityGroup(input)
	if isAlreadyExists(err) {
		return &api.SecurityGroupCreation{Outcome: api.AlreadyExists}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error creating security group %s", name)
	}
	g, err := mgr.Get(aws.StringValue(out.GroupId))
	if err != nil {
		return nil, errors.Wrapf(err, "error creating security group %s", name)
	}
	return &api.SecurityGroupCreation{Outcome: api.Created, Group: g}, nil
}

//Delete deletes the security group identified by id
func (mgr *SecurityGroupManager) Delete(id string) error {
	_, err := mgr.ec2.DeleteSecurityGroup(&ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(id),
	})
	if err != nil {
		return errors.Wrap(classify(err, "security group", id), "error deleting security group")
	}
	return nil
}

//List list all security groups of the VPC
func (mgr *SecurityGroupManager) List() ([]api.SecurityGroup, error) {
	input := &ec2.DescribeSecurityGroupsInput{}
	if mgr.vpcID != "" {
		input.Filters = []*ec2.Filter{filter("vpc-id", mgr.vpcID)}
	}
	var res []api.SecurityGroup
	err := mgr.ec2.DescribeSecurityGroupsPages(input, func(out *ec2.DescribeSecurityGroupsOutput, last bool) bool {
		for _, g := range out.SecurityGroups {
			res = append(res, *mgr.group(g))
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "error listing security groups")
	}
	return res, nil
}

//Get returns the security group identified by id
func (mgr *SecurityGroupManager) Get(id string) (*api.SecurityGroup, error) {
	out, err := mgr.ec2.DescribeSecurityGroups(&ec2.DescribeSecurityGroupsInput{
		GroupIds: []*string{aws.String(id)},
	})
	if err != nil {
		return nil, errors.Wrap(classify(err, "security group", id), "error getting security group")
	}
	if len(out.SecurityGroups) == 0 {
		return nil, api.NewNotFoundError(nil, "security group", id)
	}
	return mgr.group(out.SecurityGroups[0]), nil
}

func ipPermissions(p api.IngressPermission) []*ec2.IpPermission {
	base := func() *ec2.IpPermission {
		return &ec2.IpPermission{
			IpProtocol: aws.String(string(p.Protocol)),
			FromPort:   aws.Int64(int64(p.PortRange.From)),
			ToPort:     aws.Int64(int64(p.PortRange.To)),
		}
	}
	var res []*ec2.IpPermission
	for _, cidr := range p.CIDRs {
		perm := base()
		perm.IpRanges = []*ec2.IpRange{{CidrIp: aws.String(cidr)}}
		res = append(res, perm)
	}
	for _, peer := range p.PeerGroupIDs {
		perm := base()
		perm.UserIdGroupPairs = []*ec2.UserIdGroupPair{{GroupId: aws.String(peer)}}
		res = append(res, perm)
	}
	return res
}

//AuthorizeIngress authorizes each source separately, sources already authorized are ignored
func (mgr *SecurityGroupManager) AuthorizeIngress(groupID string, permission api.IngressPermission) error {
	for _, perm := range ipPermissions(permission) {
		_, err := mgr.ec2.AuthorizeSecurityGroupIngress(&ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: []*ec2.IpPermission{perm},
		})
		if err != nil && !isDuplicateRule(err) {
			return errors.Wrapf(classify(err, "security group", groupID), "error authorizing ingress on security group %s", groupID)
		}
	}
	return nil
}
