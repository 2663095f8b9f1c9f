package api

import (
	"fmt"
	"strings"
)

//RegionAndID identifies a resource by its provider local id inside a region
type RegionAndID struct {
	Region string
	ID     string
}

//String slash-encodes the key as region/id
func (k RegionAndID) String() string {
	return k.Region + "/" + k.ID
}

//ParseRegionAndID decodes a region/id string
func ParseRegionAndID(s string) (RegionAndID, error) {
	tokens := strings.Split(s, "/")
	if len(tokens) != 2 || tokens[0] == "" || tokens[1] == "" {
		return RegionAndID{}, fmt.Errorf("invalid region/id '%s'", s)
	}
	return RegionAndID{Region: tokens[0], ID: tokens[1]}, nil
}

//RegionAndName identifies a resource by its logical name inside a region
type RegionAndName struct {
	Region string
	Name   string
}

//String slash-encodes the key as region/name
func (k RegionAndName) String() string {
	return k.Region + "/" + k.Name
}
