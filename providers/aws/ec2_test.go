package aws_test

import (
	"fmt"
	"sort"
	"sync"

	"github.com/SebastienDorgan/anynodes/sshutils"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
)

const owner = "123456789012"

func awsErr(code string) error {
	return awserr.New(code, code, nil)
}

func instanceState(code int64, name string) *ec2.InstanceState {
	return &ec2.InstanceState{Code: aws.Int64(code), Name: aws.String(name)}
}

//fakeEC2 in memory EC2 endpoint implementing the calls the provider makes
type fakeEC2 struct {
	ec2iface.EC2API

	mu        sync.Mutex
	seq       int
	instances map[string]*ec2.Instance
	groups    map[string]*ec2.SecurityGroup
	addresses map[string]*ec2.Address
	keyPairs  map[string]*ec2.KeyPairInfo
	//free addresses by public IPv4 pool, "" is Amazon's pool
	pools map[string][]string
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{
		instances: map[string]*ec2.Instance{},
		groups:    map[string]*ec2.SecurityGroup{},
		addresses: map[string]*ec2.Address{},
		keyPairs:  map[string]*ec2.KeyPairInfo{},
		pools: map[string][]string{
			"":               {"203.0.113.1", "203.0.113.2", "203.0.113.3"},
			"ipv4pool-ec2-1": {"198.51.100.1"},
		},
	}
}

func (f *fakeEC2) id(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%08d", prefix, f.seq)
}

func (f *fakeEC2) RunInstances(in *ec2.RunInstancesInput) (*ec2.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var groups []*ec2.GroupIdentifier
	for _, id := range in.SecurityGroupIds {
		g, ok := f.groups[aws.StringValue(id)]
		if !ok {
			return nil, awsErr("InvalidGroup.NotFound")
		}
		groups = append(groups, &ec2.GroupIdentifier{GroupId: g.GroupId, GroupName: g.GroupName})
	}
	if in.KeyName != nil {
		if _, ok := f.keyPairs[*in.KeyName]; !ok {
			return nil, awsErr("InvalidKeyPair.NotFound")
		}
	}
	var tags []*ec2.Tag
	for _, spec := range in.TagSpecifications {
		tags = append(tags, spec.Tags...)
	}
	id := f.id("i")
	ins := &ec2.Instance{
		InstanceId:       aws.String(id),
		ImageId:          in.ImageId,
		InstanceType:     in.InstanceType,
		KeyName:          in.KeyName,
		SecurityGroups:   groups,
		Tags:             tags,
		PrivateIpAddress: aws.String(fmt.Sprintf("172.31.0.%d", f.seq)),
		Placement:        in.Placement,
		State:            instanceState(0, ec2.InstanceStateNamePending),
	}
	f.instances[id] = ins
	c := *ins
	return &ec2.Reservation{Instances: []*ec2.Instance{&c}}, nil
}

//describe returns a copy of an instance, pending instances are running the next time they are described
func (f *fakeEC2) describe(ins *ec2.Instance) *ec2.Instance {
	c := *ins
	if aws.Int64Value(ins.State.Code) == 0 {
		ins.State = instanceState(16, ec2.InstanceStateNameRunning)
	}
	return &c
}

func (f *fakeEC2) DescribeInstances(in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := &ec2.Reservation{}
	for _, id := range in.InstanceIds {
		ins, ok := f.instances[aws.StringValue(id)]
		if !ok {
			return nil, awsErr("InvalidInstanceID.NotFound")
		}
		res.Instances = append(res.Instances, f.describe(ins))
	}
	return &ec2.DescribeInstancesOutput{Reservations: []*ec2.Reservation{res}}, nil
}

func (f *fakeEC2) DescribeInstancesPages(in *ec2.DescribeInstancesInput, fn func(*ec2.DescribeInstancesOutput, bool) bool) error {
	f.mu.Lock()
	var ids []string
	for id := range f.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res := &ec2.Reservation{}
	for _, id := range ids {
		res.Instances = append(res.Instances, f.describe(f.instances[id]))
	}
	f.mu.Unlock()
	fn(&ec2.DescribeInstancesOutput{Reservations: []*ec2.Reservation{res}}, true)
	return nil
}

func (f *fakeEC2) TerminateInstances(in *ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &ec2.TerminateInstancesOutput{}
	for _, id := range in.InstanceIds {
		ins, ok := f.instances[aws.StringValue(id)]
		if !ok {
			return nil, awsErr("InvalidInstanceID.NotFound")
		}
		previous := ins.State
		ins.State = instanceState(48, ec2.InstanceStateNameTerminated)
		ins.PublicIpAddress = nil
		for _, a := range f.addresses {
			if aws.StringValue(a.InstanceId) == *id {
				a.InstanceId, a.AssociationId, a.PrivateIpAddress = nil, nil, nil
			}
		}
		out.TerminatingInstances = append(out.TerminatingInstances, &ec2.InstanceStateChange{
			InstanceId:    id,
			PreviousState: previous,
			CurrentState:  ins.State,
		})
	}
	return out, nil
}

func (f *fakeEC2) CreateSecurityGroup(in *ec2.CreateSecurityGroupInput) (*ec2.CreateSecurityGroupOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if aws.StringValue(g.GroupName) == aws.StringValue(in.GroupName) && aws.StringValue(g.VpcId) == aws.StringValue(in.VpcId) {
			return nil, awsErr("InvalidGroup.Duplicate")
		}
	}
	id := f.id("sg")
	f.groups[id] = &ec2.SecurityGroup{
		GroupId:     aws.String(id),
		GroupName:   in.GroupName,
		Description: in.Description,
		VpcId:       in.VpcId,
		OwnerId:     aws.String(owner),
	}
	return &ec2.CreateSecurityGroupOutput{GroupId: aws.String(id)}, nil
}

func (f *fakeEC2) DeleteSecurityGroup(in *ec2.DeleteSecurityGroupInput) (*ec2.DeleteSecurityGroupOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.StringValue(in.GroupId)
	if _, ok := f.groups[id]; !ok {
		return nil, awsErr("InvalidGroup.NotFound")
	}
	for _, ins := range f.instances {
		if aws.Int64Value(ins.State.Code) == 48 {
			continue
		}
		for _, g := range ins.SecurityGroups {
			if aws.StringValue(g.GroupId) == id {
				return nil, awsErr("DependencyViolation")
			}
		}
	}
	delete(f.groups, id)
	return &ec2.DeleteSecurityGroupOutput{}, nil
}

func copyGroup(g *ec2.SecurityGroup) *ec2.SecurityGroup {
	c := *g
	c.IpPermissions = append([]*ec2.IpPermission(nil), g.IpPermissions...)
	return &c
}

func matches(g *ec2.SecurityGroup, filters []*ec2.Filter) bool {
	for _, flt := range filters {
		var value string
		switch aws.StringValue(flt.Name) {
		case "group-name":
			value = aws.StringValue(g.GroupName)
		case "vpc-id":
			value = aws.StringValue(g.VpcId)
		default:
			continue
		}
		found := false
		for _, v := range flt.Values {
			found = found || aws.StringValue(v) == value
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeEC2) DescribeSecurityGroups(in *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &ec2.DescribeSecurityGroupsOutput{}
	if len(in.GroupIds) > 0 {
		for _, id := range in.GroupIds {
			g, ok := f.groups[aws.StringValue(id)]
			if !ok {
				return nil, awsErr("InvalidGroup.NotFound")
			}
			out.SecurityGroups = append(out.SecurityGroups, copyGroup(g))
		}
		return out, nil
	}
	var ids []string
	for id := range f.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if matches(f.groups[id], in.Filters) {
			out.SecurityGroups = append(out.SecurityGroups, copyGroup(f.groups[id]))
		}
	}
	return out, nil
}

func (f *fakeEC2) DescribeSecurityGroupsPages(in *ec2.DescribeSecurityGroupsInput, fn func(*ec2.DescribeSecurityGroupsOutput, bool) bool) error {
	out, err := f.DescribeSecurityGroups(in)
	if err != nil {
		return err
	}
	fn(out, true)
	return nil
}

func samePermission(a *ec2.IpPermission, b *ec2.IpPermission) bool {
	if aws.StringValue(a.IpProtocol) != aws.StringValue(b.IpProtocol) ||
		aws.Int64Value(a.FromPort) != aws.Int64Value(b.FromPort) ||
		aws.Int64Value(a.ToPort) != aws.Int64Value(b.ToPort) {
		return false
	}
	for _, ra := range a.IpRanges {
		for _, rb := range b.IpRanges {
			if aws.StringValue(ra.CidrIp) == aws.StringValue(rb.CidrIp) {
				return true
			}
		}
	}
	for _, pa := range a.UserIdGroupPairs {
		for _, pb := range b.UserIdGroupPairs {
			if aws.StringValue(pa.GroupId) == aws.StringValue(pb.GroupId) {
				return true
			}
		}
	}
	return false
}

func (f *fakeEC2) AuthorizeSecurityGroupIngress(in *ec2.AuthorizeSecurityGroupIngressInput) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[aws.StringValue(in.GroupId)]
	if !ok {
		return nil, awsErr("InvalidGroup.NotFound")
	}
	for _, p := range in.IpPermissions {
		for _, existing := range g.IpPermissions {
			if samePermission(existing, p) {
				return nil, awsErr("InvalidPermission.Duplicate")
			}
		}
		for _, pair := range p.UserIdGroupPairs {
			if _, ok := f.groups[aws.StringValue(pair.GroupId)]; !ok {
				return nil, awsErr("InvalidGroup.NotFound")
			}
		}
	}
	g.IpPermissions = append(g.IpPermissions, in.IpPermissions...)
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func (f *fakeEC2) AllocateAddress(in *ec2.AllocateAddressInput) (*ec2.AllocateAddressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pool := aws.StringValue(in.PublicIpv4Pool)
	free, ok := f.pools[pool]
	if !ok {
		return nil, awsErr("InvalidPublicIpv4PoolID.NotFound")
	}
	if len(free) == 0 {
		return nil, awsErr("AddressLimitExceeded")
	}
	f.pools[pool] = free[1:]
	if pool == "" {
		pool = "amazon"
	}
	a := &ec2.Address{
		AllocationId:   aws.String(f.id("eipalloc")),
		PublicIp:       aws.String(free[0]),
		PublicIpv4Pool: aws.String(pool),
		Domain:         aws.String(ec2.DomainTypeVpc),
	}
	f.addresses[*a.AllocationId] = a
	return &ec2.AllocateAddressOutput{
		AllocationId:   a.AllocationId,
		PublicIp:       a.PublicIp,
		PublicIpv4Pool: a.PublicIpv4Pool,
		Domain:         a.Domain,
	}, nil
}

func (f *fakeEC2) DescribeAddresses(in *ec2.DescribeAddressesInput) (*ec2.DescribeAddressesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &ec2.DescribeAddressesOutput{}
	if len(in.AllocationIds) > 0 {
		for _, id := range in.AllocationIds {
			a, ok := f.addresses[aws.StringValue(id)]
			if !ok {
				return nil, awsErr("InvalidAllocationID.NotFound")
			}
			c := *a
			out.Addresses = append(out.Addresses, &c)
		}
		return out, nil
	}
	var ids []string
	for id := range f.addresses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := *f.addresses[id]
		out.Addresses = append(out.Addresses, &c)
	}
	return out, nil
}

func (f *fakeEC2) AssociateAddress(in *ec2.AssociateAddressInput) (*ec2.AssociateAddressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.addresses[aws.StringValue(in.AllocationId)]
	if !ok {
		return nil, awsErr("InvalidAllocationID.NotFound")
	}
	ins, ok := f.instances[aws.StringValue(in.InstanceId)]
	if !ok {
		return nil, awsErr("InvalidInstanceID.NotFound")
	}
	a.InstanceId = ins.InstanceId
	a.PrivateIpAddress = ins.PrivateIpAddress
	a.AssociationId = aws.String(f.id("eipassoc"))
	ins.PublicIpAddress = a.PublicIp
	return &ec2.AssociateAddressOutput{AssociationId: a.AssociationId}, nil
}

func (f *fakeEC2) DisassociateAddress(in *ec2.DisassociateAddressInput) (*ec2.DisassociateAddressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.addresses {
		if aws.StringValue(a.AssociationId) != aws.StringValue(in.AssociationId) {
			continue
		}
		if ins, ok := f.instances[aws.StringValue(a.InstanceId)]; ok {
			ins.PublicIpAddress = nil
		}
		a.InstanceId, a.AssociationId, a.PrivateIpAddress = nil, nil, nil
		return &ec2.DisassociateAddressOutput{}, nil
	}
	return nil, awsErr("InvalidAssociationID.NotFound")
}

func (f *fakeEC2) ReleaseAddress(in *ec2.ReleaseAddressInput) (*ec2.ReleaseAddressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.addresses[aws.StringValue(in.AllocationId)]
	if !ok {
		return nil, awsErr("InvalidAllocationID.NotFound")
	}
	if a.AssociationId != nil {
		return nil, awsErr("InvalidIPAddress.InUse")
	}
	delete(f.addresses, *a.AllocationId)
	pool := aws.StringValue(a.PublicIpv4Pool)
	if pool == "amazon" {
		pool = ""
	}
	f.pools[pool] = append(f.pools[pool], aws.StringValue(a.PublicIp))
	return &ec2.ReleaseAddressOutput{}, nil
}

func (f *fakeEC2) ImportKeyPair(in *ec2.ImportKeyPairInput) (*ec2.ImportKeyPairOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.StringValue(in.KeyName)
	if _, ok := f.keyPairs[name]; ok {
		return nil, awsErr("InvalidKeyPair.Duplicate")
	}
	fp, err := sshutils.Fingerprint(in.PublicKeyMaterial)
	if err != nil {
		return nil, awsErr("InvalidKey.Format")
	}
	f.keyPairs[name] = &ec2.KeyPairInfo{KeyName: aws.String(name), KeyFingerprint: aws.String(fp)}
	return &ec2.ImportKeyPairOutput{KeyName: aws.String(name), KeyFingerprint: aws.String(fp)}, nil
}

func (f *fakeEC2) DescribeKeyPairs(in *ec2.DescribeKeyPairsInput) (*ec2.DescribeKeyPairsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &ec2.DescribeKeyPairsOutput{}
	if len(in.KeyNames) > 0 {
		for _, n := range in.KeyNames {
			kp, ok := f.keyPairs[aws.StringValue(n)]
			if !ok {
				return nil, awsErr("InvalidKeyPair.NotFound")
			}
			c := *kp
			out.KeyPairs = append(out.KeyPairs, &c)
		}
		return out, nil
	}
	var names []string
	for n := range f.keyPairs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := *f.keyPairs[n]
		out.KeyPairs = append(out.KeyPairs, &c)
	}
	return out, nil
}

func (f *fakeEC2) DeleteKeyPair(in *ec2.DeleteKeyPairInput) (*ec2.DeleteKeyPairOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keyPairs, aws.StringValue(in.KeyName))
	return &ec2.DeleteKeyPairOutput{}, nil
}
