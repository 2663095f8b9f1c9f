package aws

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
)

//ServerManager defines Server management functions for AWS using EC2 interface
type ServerManager struct {
	ec2       ec2iface.EC2API
	region    string
	vpcID     string
	locations api.LocationIndex
}

//state maps the low byte of the EC2 state code, the high byte is reserved
func state(in *ec2.InstanceState) api.NodeStatus {
	if in == nil || in.Code == nil {
		return api.NodeUnrecognized
	}
	switch *in.Code & 0xff {
	case 0, 32, 64:
		//pending, shutting-down, stopping
		return api.NodePending
	case 16:
		return api.NodeRunning
	case 48:
		return api.NodeTerminated
	case 80:
		return api.NodeSuspended
	default:
		return api.NodeUnrecognized
	}
}

func groupNames(in []*ec2.GroupIdentifier) []string {
	var result []string
	for _, g := range in {
		result = append(result, aws.StringValue(g.GroupName))
	}
	return result
}

func (mgr *ServerManager) node(instance *ec2.Instance) *api.Node {
	name, md := tagMap(instance.Tags)
	var public, private []string
	if instance.PublicIpAddress != nil {
		public = []string{*instance.PublicIpAddress}
	}
	if instance.PrivateIpAddress != nil {
		private = []string{*instance.PrivateIpAddress}
	}
	zone := ""
	if instance.Placement != nil {
		zone = aws.StringValue(instance.Placement.AvailabilityZone)
	}
	return &api.Node{
		ID:               api.RegionAndID{Region: mgr.region, ID: aws.StringValue(instance.InstanceId)},
		Name:             name,
		Group:            md[api.MetadataGroupKey],
		Status:           state(instance.State),
		Tags:             api.TagsFromMetadata(md),
		Metadata:         md,
		PublicAddresses:  public,
		PrivateAddresses: private,
		KeyName:          aws.StringValue(instance.KeyName),
		SecurityGroups:   groupNames(instance.SecurityGroups),
		Location:         mgr.locations.Zone(mgr.region, zone),
	}
}

//securityGroupIDs resolves group names, instances launched in a VPC only accept ids
func (mgr *ServerManager) securityGroupIDs(names []string) ([]*string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	filters := []*ec2.Filter{filter("group-name", names...)}
	if mgr.vpcID != "" {
		filters = append(filters, filter("vpc-id", mgr.vpcID))
	}
	out, err := mgr.ec2.DescribeSecurityGroups(&ec2.DescribeSecurityGroupsInput{Filters: filters})
	if err != nil {
		return nil, err
	}
	ids := map[string]string{}
	for _, g := range out.SecurityGroups {
		ids[aws.StringValue(g.GroupName)] = aws.StringValue(g.GroupId)
	}
	var res []*string
	for _, n := range names {
		id, ok := ids[n]
		if !ok {
			return nil, api.NewNotFoundError(nil, "security group", n)
		}
		res = append(res, aws.String(id))
	}
	return res, nil
}

func runInstancesInput(options api.CreateServerOptions, groupIDs []*string) *ec2.RunInstancesInput {
	tags := map[string]string{nameTag: options.Name}
	for k, v := range options.Metadata {
		tags[k] = v
	}
	input := &ec2.RunInstancesInput{
		ImageId:          aws.String(options.ImageID),
		InstanceType:     aws.String(options.TemplateID),
		SecurityGroupIds: groupIDs,
		MinCount:         aws.Int64(1),
		MaxCount:         aws.Int64(1),
		TagSpecifications: []*ec2.TagSpecification{{
			ResourceType: aws.String(ec2.ResourceTypeInstance),
			Tags:         createAWSTags(tags),
		}},
	}
	if options.KeyName != "" {
		input.KeyName = aws.String(options.KeyName)
	}
	if options.AvailabilityZone != "" {
		input.Placement = &ec2.Placement{AvailabilityZone: aws.String(options.AvailabilityZone)}
	}
	return input
}

//Create launches an instance, tags carry the name and the metadata
func (mgr *ServerManager) Create(options api.CreateServerOptions) (*api.Node, error) {
	groupIDs, err := mgr.securityGroupIDs(options.SecurityGroups)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating server %s", options.Name)
	}
	out, err := mgr.ec2.RunInstances(runInstancesInput(options, groupIDs))
	if err != nil {
		return nil, errors.Wrapf(err, "error creating server %s", options.Name)
	}
	if len(out.Instances) == 0 || out.Instances[0].InstanceId == nil {
		return nil, errors.Errorf("unknown error creating server %s", options.Name)
	}
	return mgr.node(out.Instances[0]), nil
}

//Get get Server
func (mgr *ServerManager) Get(id string) (*api.Node, error) {
	out, err := mgr.ec2.DescribeInstances(&ec2.DescribeInstancesInput{
		InstanceIds: []*string{aws.String(id)},
	})
	if err != nil {
		return nil, errors.Wrapf(classify(err, "server", id), "error getting instance %s", id)
	}
	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return nil, api.NewNotFoundError(nil, "server", id)
	}
	return mgr.node(out.Reservations[0].Instances[0]), nil
}

//List list Servers
func (mgr *ServerManager) List() ([]api.Node, error) {
	var nodes []api.Node
	err := mgr.ec2.DescribeInstancesPages(&ec2.DescribeInstancesInput{}, func(out *ec2.DescribeInstancesOutput, last bool) bool {
		for _, res := range out.Reservations {
			for _, ins := range res.Instances {
				nodes = append(nodes, *mgr.node(ins))
			}
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "error listing instances")
	}
	return nodes, nil
}

//Delete terminates an instance, false is returned if it was already terminated
func (mgr *ServerManager) Delete(id string) (bool, error) {
	out, err := mgr.ec2.TerminateInstances(&ec2.TerminateInstancesInput{
		InstanceIds: []*string{aws.String(id)},
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "error deleting instance %s", id)
	}
	for _, change := range out.TerminatingInstances {
		if state(change.PreviousState) == api.NodeTerminated {
			return false, nil
		}
	}
	return true, nil
}
