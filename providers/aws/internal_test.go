package aws

import (
	"testing"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/iputils"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	code := func(c int64) *ec2.InstanceState {
		return &ec2.InstanceState{Code: aws.Int64(c)}
	}
	assert.Equal(t, api.NodePending, state(code(0)))
	assert.Equal(t, api.NodeRunning, state(code(16)))
	//the high byte is ignored
	assert.Equal(t, api.NodeRunning, state(code(16+256)))
	assert.Equal(t, api.NodePending, state(code(32)))
	assert.Equal(t, api.NodeTerminated, state(code(48)))
	assert.Equal(t, api.NodePending, state(code(64)))
	assert.Equal(t, api.NodeSuspended, state(code(80)))
	assert.Equal(t, api.NodeUnrecognized, state(code(7)))
	assert.Equal(t, api.NodeUnrecognized, state(nil))
}

func TestClassify(t *testing.T) {
	err := classify(errors.Wrap(awserr.New("AddressLimitExceeded", "too many addresses", nil), "context"), "elastic ip", "")
	assert.True(t, api.IsResourceExhausted(err))
	err = classify(awserr.New("InvalidGroup.NotFound", "no group", nil), "security group", "sg-1")
	assert.True(t, api.IsNotFound(err))
	err = classify(awserr.New("UnauthorizedOperation", "denied", nil), "security group", "sg-1")
	assert.False(t, api.IsNotFound(err))
	assert.False(t, api.IsResourceExhausted(err))
	assert.Nil(t, classify(nil, "server", "i-1"))
	assert.True(t, isDuplicateRule(awserr.New("InvalidPermission.Duplicate", "dup", nil)))
	assert.True(t, isAlreadyExists(awserr.New("InvalidGroup.Duplicate", "dup", nil)))
	assert.Equal(t, "", errorCode(errors.New("plain")))
}

func TestPermissions(t *testing.T) {
	perms := permissions([]*ec2.IpPermission{
		{
			IpProtocol:       aws.String("tcp"),
			FromPort:         aws.Int64(22),
			ToPort:           aws.Int64(22),
			IpRanges:         []*ec2.IpRange{{CidrIp: aws.String(iputils.AnyIPv4)}},
			UserIdGroupPairs: []*ec2.UserIdGroupPair{{GroupId: aws.String("sg-1")}},
		},
		{IpProtocol: aws.String("-1"), IpRanges: []*ec2.IpRange{{CidrIp: aws.String(iputils.AnyIPv4)}}},
		{IpProtocol: aws.String("icmp"), FromPort: aws.Int64(-1), ToPort: aws.Int64(-1)},
	})
	require.Len(t, perms, 1)
	assert.Equal(t, api.ProtocolTCP, perms[0].Protocol)
	assert.Equal(t, []string{iputils.AnyIPv4}, perms[0].CIDRs)
	assert.Equal(t, []string{"sg-1"}, perms[0].PeerGroupIDs)
}

func TestIPPermissions(t *testing.T) {
	p, err := api.NewIngressPermission(api.ProtocolUDP, 53, 53, []string{"10.0.0.0/8"}, []string{"sg-1"})
	require.NoError(t, err)
	l := ipPermissions(p)
	require.Len(t, l, 2)
	assert.Equal(t, "10.0.0.0/8", aws.StringValue(l[0].IpRanges[0].CidrIp))
	assert.Empty(t, l[0].UserIdGroupPairs)
	assert.Equal(t, "sg-1", aws.StringValue(l[1].UserIdGroupPairs[0].GroupId))
	assert.Equal(t, int64(53), aws.Int64Value(l[1].FromPort))
}

func TestRunInstancesInput(t *testing.T) {
	in := runInstancesInput(api.CreateServerOptions{
		Name:             "web-1",
		ImageID:          "ami-1",
		TemplateID:       "t3.micro",
		Metadata:         map[string]string{api.MetadataGroupKey: "web"},
		AvailabilityZone: "eu-west-1a",
	}, []*string{aws.String("sg-1")})
	assert.Nil(t, in.KeyName)
	assert.Equal(t, "eu-west-1a", aws.StringValue(in.Placement.AvailabilityZone))
	assert.Equal(t, int64(1), aws.Int64Value(in.MaxCount))
	require.Len(t, in.TagSpecifications, 1)
	name, md := tagMap(in.TagSpecifications[0].Tags)
	assert.Equal(t, "web-1", name)
	assert.Equal(t, map[string]string{api.MetadataGroupKey: "web"}, md)
}

func TestFloatingIP(t *testing.T) {
	free := floatingIP(&ec2.Address{
		AllocationId:   aws.String("eipalloc-1"),
		PublicIp:       aws.String("203.0.113.10"),
		PublicIpv4Pool: aws.String("amazon"),
	})
	assert.Equal(t, &api.FloatingIP{ID: "eipalloc-1", Address: "203.0.113.10", Pool: "amazon"}, free)
	assert.False(t, free.Attached())

	onInstance := floatingIP(&ec2.Address{
		AllocationId:     aws.String("eipalloc-2"),
		AssociationId:    aws.String("eipassoc-2"),
		InstanceId:       aws.String("i-1"),
		PrivateIpAddress: aws.String("10.0.0.4"),
	})
	assert.Equal(t, "i-1", onInstance.ServerID)
	assert.True(t, onInstance.Attached())

	onInterface := floatingIP(&ec2.Address{
		AllocationId:       aws.String("eipalloc-3"),
		AssociationId:      aws.String("eipassoc-3"),
		NetworkInterfaceId: aws.String("eni-3"),
	})
	assert.Equal(t, "eni-3", onInterface.ServerID)
	assert.True(t, onInterface.Attached())

	associated := floatingIP(&ec2.Address{
		AllocationId:  aws.String("eipalloc-4"),
		AssociationId: aws.String("eipassoc-4"),
	})
	assert.True(t, associated.Attached())
}
