package api

//LocationScope granularity of a location
type LocationScope string

const (
	//LocationScopeProvider the whole provider
	LocationScopeProvider LocationScope = "PROVIDER"
	//LocationScopeRegion a provider region
	LocationScopeRegion LocationScope = "REGION"
	//LocationScopeZone an availability zone inside a region
	LocationScopeZone LocationScope = "ZONE"
	//LocationScopeHost a single hypervisor
	LocationScopeHost LocationScope = "HOST"
)

//Location a portable location, parents are coarser locations
type Location struct {
	ID     string
	Scope  LocationScope
	Parent *Location
}

//Region returns the nearest region scoped location starting from l
func (l *Location) Region() *Location {
	for loc := l; loc != nil; loc = loc.Parent {
		if loc.Scope == LocationScopeRegion {
			return loc
		}
	}
	return nil
}

//LocationIndex maps region names to their location
type LocationIndex map[string]*Location

//NewLocationIndex builds a LocationIndex with one region location per region, all children of the provider location
func NewLocationIndex(provider string, regions []string) LocationIndex {
	root := &Location{ID: provider, Scope: LocationScopeProvider}
	idx := LocationIndex{}
	for _, r := range regions {
		idx[r] = &Location{ID: r, Scope: LocationScopeRegion, Parent: root}
	}
	return idx
}

//Zone returns a zone scoped location whose parent is the region location
func (idx LocationIndex) Zone(region string, zone string) *Location {
	if zone == "" {
		return idx[region]
	}
	return &Location{ID: zone, Scope: LocationScopeZone, Parent: idx[region]}
}
