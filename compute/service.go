package compute

import (
	"fmt"
	"sync"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

//NodeOptions options of the nodes created by CreateNodesInGroup
type NodeOptions struct {
	ImageID    string
	TemplateID string
	//Ports opened by the security group of the node group
	Ports []int
	//SecurityGroups user managed security groups attached to the nodes, the security group of the
	//node group is only created if Ports is not empty or if SecurityGroups is
	SecurityGroups []string
	//KeyName user managed key pair, a key pair is generated for the node group if empty
	KeyName string
	//AutoAssignFloatingIP overrides Options.AutoAssignFloatingIP when true
	AutoAssignFloatingIP bool
	//FloatingIPPools overrides Options.FloatingIPPools when not empty
	FloatingIPPools  []string
	Metadata         map[string]string
	AvailabilityZone string
}

//Service creates and destroys groups of nodes with the resources they need
type Service struct {
	provider api.Provider
	options  Options
	log      logrus.FieldLogger

	floatingIPs    *FloatingIPCache
	securityGroups *SecurityGroupCache
	keyPairs       *KeyPairCache

	allocator    *FloatingIPAllocator
	orchestrator *CleanupOrchestrator
	detector     *OrphanedGroupDetector
}

//NewService wires the compute functions on top of provider. log and metrics may be nil.
//Unset options take their default value.
func NewService(provider api.Provider, options Options, log logrus.FieldLogger, metrics *Metrics) (*Service, error) {
	options = options.withDefaults()
	if err := options.Validate(); err != nil {
		return nil, errors.Wrap(err, "error creating compute service")
	}
	log = loggerOrDefault(log).WithField("provider", provider.Name())
	floatingIPs, err := NewFloatingIPCache(provider, options.CacheSize)
	if err != nil {
		return nil, err
	}
	securityGroups, err := NewSecurityGroupCache(NewSecurityGroupProvisioner(provider, options.SecurityGroupDescription, log), options.CacheSize)
	if err != nil {
		return nil, err
	}
	keyPairs, err := NewKeyPairCache(NewKeyPairProvisioner(provider, options.KeySize, log), options.CacheSize)
	if err != nil {
		return nil, err
	}
	reclaimer := NewFloatingIPReclaimer(provider, floatingIPs, log)
	return &Service{
		provider:       provider,
		options:        options,
		log:            log,
		floatingIPs:    floatingIPs,
		securityGroups: securityGroups,
		keyPairs:       keyPairs,
		allocator:      NewFloatingIPAllocator(provider, floatingIPs, log, metrics),
		orchestrator:   NewCleanupOrchestrator(provider, reclaimer, floatingIPs, securityGroups, keyPairs, log, metrics),
		detector:       NewOrphanedGroupDetector(AllNodesInGroupTerminated(provider, log)),
	}, nil
}

//CreateNodesInGroup launches count nodes of group in region and waits until they are running.
//Nodes failing to start are destroyed once the whole batch is done; the nodes successfully started
//are returned with the aggregated errors of the others.
func (s *Service) CreateNodesInGroup(region string, group string, count int, opts NodeOptions) ([]api.Node, error) {
	if group == "" {
		return nil, errors.Errorf("node group name is required")
	}
	servers, err := s.provider.ServerManager(region)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating nodes of group %s", group)
	}
	var tags []string
	securityGroups := append([]string(nil), opts.SecurityGroups...)
	if len(opts.Ports) > 0 || len(opts.SecurityGroups) == 0 {
		sg, err := s.securityGroups.Get(NewSecurityGroupKey(region, SecurityGroupName(group), opts.Ports))
		if err != nil {
			return nil, errors.Wrapf(err, "error creating nodes of group %s", group)
		}
		securityGroups = append(securityGroups, sg.Name)
		tags = append(tags, SecurityGroupIDTag(sg.ID))
	}
	keyName := opts.KeyName
	if keyName == "" {
		kp, err := s.keyPairs.Get(api.RegionAndName{Region: region, Name: group})
		if err != nil {
			return nil, errors.Wrapf(err, "error creating nodes of group %s", group)
		}
		keyName = kp.Name
		tags = append(tags, KeyPairTag(kp.Name))
	}
	create := api.CreateServerOptions{
		ImageID:          opts.ImageID,
		TemplateID:       opts.TemplateID,
		KeyName:          keyName,
		SecurityGroups:   securityGroups,
		Metadata:         api.EncodeMetadata(opts.Metadata, group, tags),
		AvailabilityZone: opts.AvailabilityZone,
	}
	pools := s.options.FloatingIPPools
	if len(opts.FloatingIPPools) > 0 {
		pools = opts.FloatingIPPools
	}
	assign := opts.AutoAssignFloatingIP || s.options.AutoAssignFloatingIP

	var mu sync.Mutex
	var nodes []api.Node
	var failed []api.RegionAndID
	var result *multierror.Error
	g := errgroup.Group{}
	g.SetLimit(s.options.Parallelism)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			o := create
			o.Name = fmt.Sprintf("%s-%s", group, uuid.New().String()[:8])
			node, err := s.launch(servers, o, assign, pools)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result = multierror.Append(result, err)
				if node != nil {
					failed = append(failed, node.ID)
				}
				return nil
			}
			nodes = append(nodes, *node)
			return nil
		})
	}
	_ = g.Wait()

	//the group key pair stays while a member of the batch is running
	keepKeyPair := len(nodes) > 0
	for _, id := range failed {
		log := s.log.WithField("node", id.String())
		log.Warn("node failed to start, destroying it")
		if _, err := s.orchestrator.cleanup(id, keepKeyPair); err != nil {
			log.WithError(err).Warn("unable to destroy node")
		}
	}
	return nodes, result.ErrorOrNil()
}

//launch creates a node and brings it to the running state. On a start failure the created node is
//returned with the error so the caller can destroy it.
func (s *Service) launch(servers api.ServerManager, opts api.CreateServerOptions, assign bool, pools []string) (*api.Node, error) {
	node, err := servers.Create(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating node %s", opts.Name)
	}
	started, err := s.start(servers, node, assign, pools)
	if err != nil {
		return node, err
	}
	s.log.WithFields(logrus.Fields{"name": opts.Name, "node": started.ID.String()}).Info("node started")
	return started, nil
}

func (s *Service) start(servers api.ServerManager, node *api.Node, assign bool, pools []string) (*api.Node, error) {
	running, err := WaitUntilNodeLeavesPending(servers, node.ID.ID, s.options.NodeRunningTimeout, s.options.NodePollInterval)
	if err != nil {
		return node, err
	}
	if running.Status != api.NodeRunning {
		return node, errors.Errorf("node %s is %s", node.ID, running.Status)
	}
	if !assign {
		return running, nil
	}
	_, updated, err := s.allocator.Allocate(*running, pools)
	if err != nil {
		return running, err
	}
	return updated, nil
}

//DestroyNode destroys a node and the resources created for it
func (s *Service) DestroyNode(id api.RegionAndID) (bool, error) {
	return s.orchestrator.Cleanup(id)
}

//DestroyNodes destroys nodes, then the resources shared by the node groups left without live member.
//It returns the destroyed nodes.
func (s *Service) DestroyNodes(ids []api.RegionAndID) ([]api.Node, error) {
	var mu sync.Mutex
	var dead []api.Node
	var result *multierror.Error
	g := errgroup.Group{}
	g.SetLimit(s.options.Parallelism)
	for _, id := range ids {
		g.Go(func() error {
			node, err := s.destroy(id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result = multierror.Append(result, err)
			}
			if node != nil {
				dead = append(dead, *node)
			}
			return nil
		})
	}
	_ = g.Wait()

	for region, groups := range s.detector.Detect(dead) {
		for _, group := range groups {
			_, err := s.orchestrator.CleanupGroupResources(region, groupTags(dead, region, group))
			if err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return dead, result.ErrorOrNil()
}

func (s *Service) destroy(id api.RegionAndID) (*api.Node, error) {
	node, err := s.GetNode(id)
	if api.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	deleted, err := s.orchestrator.Cleanup(id)
	if err != nil || !deleted {
		return nil, err
	}
	node.Status = api.NodeTerminated
	return node, nil
}

func groupTags(nodes []api.Node, region string, group string) []string {
	seen := map[string]bool{}
	var tags []string
	for i := range nodes {
		if nodes[i].Group != group || EffectiveRegion(&nodes[i]) != region {
			continue
		}
		for _, t := range nodes[i].Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	return tags
}

//ListNodes lists the nodes of a region
func (s *Service) ListNodes(region string) ([]api.Node, error) {
	mgr, err := s.provider.ServerManager(region)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing nodes of region %s", region)
	}
	return mgr.List()
}

//GetNode returns a node, a NotFoundError if it does not exist
func (s *Service) GetNode(id api.RegionAndID) (*api.Node, error) {
	mgr, err := s.provider.ServerManager(id.Region)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading node %s", id)
	}
	return mgr.Get(id.ID)
}

//GroupKeyPair returns the key pair generated for a node group, with its private key, if any
func (s *Service) GroupKeyPair(region string, group string) (*api.KeyPair, bool) {
	return s.keyPairs.GetIfPresent(api.RegionAndName{Region: region, Name: group})
}

//FloatingIPs returns the floating ips attached to a node
func (s *Service) FloatingIPs(id api.RegionAndID) ([]api.FloatingIP, error) {
	return s.floatingIPs.Get(id)
}
