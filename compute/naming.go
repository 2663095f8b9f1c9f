package compute

import (
	"strings"

	"github.com/SebastienDorgan/anynodes/api"
)

//Resources created by this library are prefixed with OwnedPrefix and recorded as node tags.
//The tag layout stays readable by tooling that created nodes with the same conventions.
const (
	OwnedPrefix = "jclouds-"

	keyPairTag         = "jclouds-kp"
	securityGroupTag   = "jclouds-sg"
	securityGroupIDTag = "jclouds-sgid-"
)

//KeyPairTag tag marking key pair name as library owned
func KeyPairTag(name string) string {
	return keyPairTag + "-" + name
}

//SecurityGroupTag tag marking the per node security group name as library owned
func SecurityGroupTag(name string) string {
	return securityGroupTag + "-" + name
}

//SecurityGroupIDTag tag marking the security group shared by a node group as library owned
func SecurityGroupIDTag(id string) string {
	return securityGroupIDTag + id
}

//SecurityGroupName name of the security group created for a node group
func SecurityGroupName(group string) string {
	return OwnedPrefix + group
}

//OwnedKeyPair returns the name of the library owned key pair of node.
//A bare jclouds-kp tag designates the key the node was launched with.
func OwnedKeyPair(node *api.Node) (string, bool) {
	for _, t := range node.Tags {
		if t == keyPairTag && node.KeyName != "" {
			return node.KeyName, true
		}
		if strings.HasPrefix(t, keyPairTag+"-") && len(t) > len(keyPairTag)+1 {
			return t[len(keyPairTag)+1:], true
		}
	}
	return "", false
}

//OwnedSecurityGroups returns the names of the library owned per node security groups of node.
//A bare jclouds-sg tag designates the node groups bearing OwnedPrefix.
func OwnedSecurityGroups(node *api.Node) []string {
	var names []string
	for _, t := range node.Tags {
		if t == securityGroupTag {
			for _, sg := range node.SecurityGroups {
				if strings.HasPrefix(sg, OwnedPrefix) {
					names = append(names, sg)
				}
			}
			continue
		}
		if strings.HasPrefix(t, securityGroupTag+"-") && len(t) > len(securityGroupTag)+1 {
			names = append(names, t[len(securityGroupTag)+1:])
		}
	}
	return names
}

//OwnedSecurityGroupID returns the id of the library owned group level security group found in tags
func OwnedSecurityGroupID(tags []string) (string, bool) {
	for _, t := range tags {
		if strings.HasPrefix(t, securityGroupIDTag) && len(t) > len(securityGroupIDTag) {
			return t[len(securityGroupIDTag):], true
		}
	}
	return "", false
}
