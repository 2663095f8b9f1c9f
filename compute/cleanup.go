package compute

import (
	"strings"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//CleanupOrchestrator destroys nodes together with the resources created for them
type CleanupOrchestrator struct {
	provider       api.Provider
	reclaimer      *FloatingIPReclaimer
	floatingIPs    *FloatingIPCache
	securityGroups *SecurityGroupCache
	keyPairs       *KeyPairCache
	log            logrus.FieldLogger
	metrics        *Metrics
}

//NewCleanupOrchestrator creates a CleanupOrchestrator
func NewCleanupOrchestrator(provider api.Provider, reclaimer *FloatingIPReclaimer, floatingIPs *FloatingIPCache,
	securityGroups *SecurityGroupCache, keyPairs *KeyPairCache, log logrus.FieldLogger, metrics *Metrics) *CleanupOrchestrator {
	return &CleanupOrchestrator{
		provider:       provider,
		reclaimer:      reclaimer,
		floatingIPs:    floatingIPs,
		securityGroups: securityGroups,
		keyPairs:       keyPairs,
		log:            loggerOrDefault(log),
		metrics:        metrics,
	}
}

//Cleanup releases the floating ips and the owned key pair of a node, deletes it, then deletes its
//owned security groups. Only the server deletion outcome is returned: the other steps log their
//failures and let the next steps run.
func (o *CleanupOrchestrator) Cleanup(id api.RegionAndID) (bool, error) {
	return o.cleanup(id, false)
}

//cleanup keeps the owned key pair when keepKeyPair is set, for a node whose group has running members
func (o *CleanupOrchestrator) cleanup(id api.RegionAndID, keepKeyPair bool) (bool, error) {
	log := o.log.WithField("node", id.String())
	servers, err := o.provider.ServerManager(id.Region)
	if err != nil {
		return false, errors.Wrapf(err, "error cleaning up node %s", id)
	}
	node, err := servers.Get(id.ID)
	if api.IsNotFound(err) {
		log.Debug("node already deleted")
		o.floatingIPs.Invalidate(id)
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "error cleaning up node %s", id)
	}

	o.releaseFloatingIPs(id, log)
	if name, ok := OwnedKeyPair(node); ok && !keepKeyPair {
		o.deleteKeyPair(id.Region, name, log)
	}

	deleted, err := servers.Delete(id.ID)
	if err != nil {
		err = errors.Wrapf(err, "error deleting node %s", id)
	}

	for _, name := range OwnedSecurityGroups(node) {
		o.deleteSecurityGroupNamed(id.Region, name, log)
	}
	return deleted, err
}

func (o *CleanupOrchestrator) releaseFloatingIPs(id api.RegionAndID, log logrus.FieldLogger) {
	_, err := o.provider.FloatingIPManager(id.Region)
	if errors.Is(err, api.ErrCapabilityUnavailable) {
		return
	}
	if err == nil {
		_, err = o.reclaimer.Reclaim(id)
	}
	if err != nil {
		o.metrics.cleanupFailure("floating_ip")
		log.WithError(err).Warn("unable to release floating ips, continuing")
	}
}

func (o *CleanupOrchestrator) deleteKeyPair(region string, name string, log logrus.FieldLogger) {
	log = log.WithField("keypair", name)
	mgr, err := o.provider.KeyPairManager(region)
	if err == nil {
		err = mgr.Delete(name)
	}
	if err != nil && !api.IsNotFound(err) {
		o.metrics.cleanupFailure("key_pair")
		log.WithError(err).Warn("unable to delete key pair, continuing")
		return
	}
	o.keyPairs.InvalidateIf(func(k api.RegionAndName, kp *api.KeyPair) bool {
		return k.Region == region && kp != nil && kp.Name == name
	})
	log.Debug("key pair deleted")
}

func (o *CleanupOrchestrator) deleteSecurityGroupNamed(region string, name string, log logrus.FieldLogger) {
	log = log.WithField("security_group", name)
	err := o.findAndDeleteSecurityGroup(region, name)
	if err != nil {
		o.metrics.cleanupFailure("security_group")
		log.WithError(err).Warn("unable to delete security group, continuing")
		return
	}
	o.securityGroups.InvalidateIf(func(k SecurityGroupKey, _ *api.SecurityGroup) bool {
		return k.Region == region && strings.EqualFold(k.Name, name)
	})
	log.Debug("security group deleted")
}

func (o *CleanupOrchestrator) findAndDeleteSecurityGroup(region string, name string) error {
	mgr, err := o.provider.SecurityGroupManager(region)
	if err != nil {
		return err
	}
	groups, err := mgr.List()
	if err != nil {
		return err
	}
	for _, g := range groups {
		if !strings.EqualFold(g.Name, name) {
			continue
		}
		err = mgr.Delete(g.ID)
		if err != nil && !api.IsNotFound(err) {
			return err
		}
	}
	return nil
}

//CleanupGroupResources deletes the security group shared by a node group, designated by the
//jclouds-sgid tag found in tags. It returns true if a security group was deleted.
func (o *CleanupOrchestrator) CleanupGroupResources(region string, tags []string) (bool, error) {
	id, ok := OwnedSecurityGroupID(tags)
	if !ok {
		return false, nil
	}
	mgr, err := o.provider.SecurityGroupManager(region)
	if err != nil {
		return false, errors.Wrapf(err, "error deleting security group %s", id)
	}
	err = mgr.Delete(id)
	notFound := api.IsNotFound(err)
	if err != nil && !notFound {
		return false, errors.Wrapf(err, "error deleting security group %s", id)
	}
	o.securityGroups.InvalidateIf(func(k SecurityGroupKey, sg *api.SecurityGroup) bool {
		return k.Region == region && sg != nil && sg.ID == id
	})
	if notFound {
		return false, nil
	}
	o.log.WithFields(logrus.Fields{"region": region, "security_group": id}).Debug("group security group deleted")
	return true, nil
}
