package api

import (
	"sort"
	"strings"
)

//NodeStatus portable lifecycle status of a node
type NodeStatus string

const (
	//NodePending node is being built or is in a transient state
	NodePending NodeStatus = "PENDING"
	//NodeRunning node is up
	NodeRunning NodeStatus = "RUNNING"
	//NodeSuspended node is stopped or paused
	NodeSuspended NodeStatus = "SUSPENDED"
	//NodeTerminated node is deleted or being deleted
	NodeTerminated NodeStatus = "TERMINATED"
	//NodeError node is in error
	NodeError NodeStatus = "ERROR"
	//NodeUnrecognized provider status could not be mapped
	NodeUnrecognized NodeStatus = "UNRECOGNIZED"
)

const (
	//MetadataTagsKey metadata entry holding the comma separated node tags
	MetadataTagsKey = "jclouds_tags"
	//MetadataGroupKey metadata entry holding the node group
	MetadataGroupKey = "jclouds-group"
)

//Node portable view of a compute server
type Node struct {
	ID               RegionAndID
	Name             string
	Group            string
	Status           NodeStatus
	Tags             []string
	Metadata         map[string]string
	PublicAddresses  []string
	PrivateAddresses []string
	KeyName          string
	SecurityGroups   []string
	Location         *Location
}

//WithPublicAddress returns a copy of the node with address added to its public addresses
func (n Node) WithPublicAddress(address string) Node {
	for _, a := range n.PublicAddresses {
		if a == address {
			return n
		}
	}
	addresses := make([]string, 0, len(n.PublicAddresses)+1)
	addresses = append(addresses, n.PublicAddresses...)
	n.PublicAddresses = append(addresses, address)
	return n
}

//HasTag tells if the node carries tag
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

//TagsFromMetadata decodes the tags stored in node metadata
func TagsFromMetadata(md map[string]string) []string {
	raw, ok := md[MetadataTagsKey]
	if !ok {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

//EncodeMetadata returns a copy of md holding the group and the tags
func EncodeMetadata(md map[string]string, group string, tags []string) map[string]string {
	res := make(map[string]string, len(md)+2)
	for k, v := range md {
		res[k] = v
	}
	if group != "" {
		res[MetadataGroupKey] = group
	}
	if len(tags) > 0 {
		sorted := append([]string(nil), tags...)
		sort.Strings(sorted)
		res[MetadataTagsKey] = strings.Join(sorted, ",")
	}
	return res
}

//CreateServerOptions defines options to use when creating a server
type CreateServerOptions struct {
	Name             string
	ImageID          string
	TemplateID       string
	KeyName          string
	SecurityGroups   []string
	Metadata         map[string]string
	AvailabilityZone string
}

//ServerManager defines the server functions a provider region must offer
type ServerManager interface {
	Create(options CreateServerOptions) (*Node, error)
	//Get returns a NotFoundError if the server does not exist
	Get(id string) (*Node, error)
	List() ([]Node, error)
	//Delete returns false if the server was already gone
	Delete(id string) (bool, error)
}
