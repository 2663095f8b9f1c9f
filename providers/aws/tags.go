package aws

import (
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
)

//nameTag EC2 tag holding the display name of a resource
const nameTag = "Name"

func createAWSTags(tags map[string]string) []*ec2.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var awsTags []*ec2.Tag
	for _, k := range keys {
		awsTags = append(awsTags, &ec2.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return awsTags
}

//tagMap converts EC2 tags to a map, the Name tag is returned apart
func tagMap(tags []*ec2.Tag) (string, map[string]string) {
	name := ""
	res := map[string]string{}
	for _, t := range tags {
		k, v := aws.StringValue(t.Key), aws.StringValue(t.Value)
		if k == nameTag {
			name = v
			continue
		}
		res[k] = v
	}
	return name, res
}

func filter(name string, values ...string) *ec2.Filter {
	return &ec2.Filter{
		Name:   aws.String(name),
		Values: aws.StringSlice(values),
	}
}
