package compute

import (
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/sirupsen/logrus"
)

//TerminationPredicate tells if every node of a group in a region is terminated
type TerminationPredicate func(group api.RegionAndName) bool

//OrphanedGroupDetector finds the node groups left without any live member
type OrphanedGroupDetector struct {
	allTerminated TerminationPredicate
}

//NewOrphanedGroupDetector creates an OrphanedGroupDetector confirming terminations with allTerminated
func NewOrphanedGroupDetector(allTerminated TerminationPredicate) *OrphanedGroupDetector {
	return &OrphanedGroupDetector{allTerminated: allTerminated}
}

//EffectiveRegion region a node belongs to
func EffectiveRegion(node *api.Node) string {
	if node.Location != nil {
		if r := node.Location.Region(); r != nil {
			return r.ID
		}
		return node.Location.ID
	}
	return node.ID.Region
}

//Detect returns, per region, the sorted names of the groups of dead whose members are all terminated
func (d *OrphanedGroupDetector) Detect(dead []api.Node) map[string][]string {
	candidates := map[api.RegionAndName]bool{}
	for i := range dead {
		if dead[i].Group == "" {
			continue
		}
		candidates[api.RegionAndName{Region: EffectiveRegion(&dead[i]), Name: dead[i].Group}] = true
	}
	orphans := map[string][]string{}
	for key := range candidates {
		if d.allTerminated(key) {
			orphans[key.Region] = append(orphans[key.Region], key.Name)
		}
	}
	for _, groups := range orphans {
		sort.Strings(groups)
	}
	return orphans
}

//AllNodesInGroupTerminated is the TerminationPredicate listing the servers of the region.
//A listing failure does not confirm the termination.
func AllNodesInGroupTerminated(provider api.Provider, log logrus.FieldLogger) TerminationPredicate {
	log = loggerOrDefault(log)
	return func(group api.RegionAndName) bool {
		mgr, err := provider.ServerManager(group.Region)
		if err != nil {
			log.WithError(err).WithField("region", group.Region).Warn("unable to check group termination")
			return false
		}
		nodes, err := mgr.List()
		if err != nil {
			log.WithError(err).WithField("region", group.Region).Warn("unable to check group termination")
			return false
		}
		for _, n := range nodes {
			if n.Group == group.Name && n.Status != api.NodeTerminated {
				return false
			}
		}
		return true
	}
}
