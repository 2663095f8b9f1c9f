//Package memory implements an in-memory api.Provider. Resources live in the process memory,
//hooks let tests inject provider failures.
package memory

import (
	"io"
	"sort"
	"sync"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/iputils"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//Config in-memory provider configuration
type Config struct {
	//Name of the provider, defaults to "memory"
	Name    string   `mapstructure:"name"`
	Regions []string `mapstructure:"regions"`
	//FloatingIPPools maps pool names to the IPv4 CIDR their addresses are taken from
	FloatingIPPools map[string]string `mapstructure:"floating_ip_pools"`
	//DefaultFloatingIPPool pool used by FloatingIPManager.Create
	DefaultFloatingIPPool string `mapstructure:"default_floating_ip_pool"`
	//RequiresDetach floating ips must be dissociated before being deleted
	RequiresDetach bool `mapstructure:"requires_detach"`
	//DisableFloatingIPs regions have no floating ip capability
	DisableFloatingIPs bool `mapstructure:"disable_floating_ips"`
	//BootPolls number of Get calls a new server stays pending
	BootPolls int `mapstructure:"boot_polls"`
}

//Hooks are called before the corresponding operation, a non nil error makes the operation fail
type Hooks struct {
	AllocateFromPool    func(region string, pool string) error
	CreateFloatingIP    func(region string) error
	ListFloatingIPs     func(region string) error
	Dissociate          func(region string, ip api.FloatingIP) error
	DeleteFloatingIP    func(region string, id string) error
	CreateSecurityGroup func(region string, name string) error
	DeleteSecurityGroup func(region string, id string) error
	CreateServer        func(region string, options api.CreateServerOptions) error
	DeleteServer        func(region string, id string) error
	DeleteKeyPair       func(region string, name string) error
}

type pool struct {
	addresses *iputils.AddressRange
	used      map[string]bool
}

type region struct {
	name           string
	servers        map[string]*api.Node
	bootPolls      map[string]int
	floatingIPs    map[string]*api.FloatingIP
	pools          map[string]*pool
	securityGroups map[string]*api.SecurityGroup
	keyPairs       map[string]*api.KeyPair
	nextPrivateIP  uint32
}

//Provider in-memory provider
type Provider struct {
	mu        sync.Mutex
	cfg       Config
	regions   map[string]*region
	locations api.LocationIndex
	hooks     Hooks
}

//NewProvider creates an in-memory provider
func NewProvider(cfg Config) (*Provider, error) {
	p := &Provider{}
	err := p.configure(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

//Init initialize the provider from a configuration holding a Config
func (p *Provider) Init(config io.Reader, format string) error {
	v := viper.New()
	v.SetConfigType(format)
	err := v.ReadConfig(config)
	if err != nil {
		return errors.Wrap(err, "error reading provider configuration")
	}
	cfg := Config{}
	err = v.Unmarshal(&cfg)
	if err != nil {
		return errors.Wrap(err, "error reading provider configuration")
	}
	return p.configure(cfg)
}

func (p *Provider) configure(cfg Config) error {
	if cfg.Name == "" {
		cfg.Name = "memory"
	}
	if len(cfg.Regions) == 0 {
		return errors.Errorf("error initializing memory provider: no region")
	}
	if cfg.DefaultFloatingIPPool != "" {
		if _, ok := cfg.FloatingIPPools[cfg.DefaultFloatingIPPool]; !ok {
			return errors.Errorf("error initializing memory provider: unknown default pool %s", cfg.DefaultFloatingIPPool)
		}
	}
	regions := map[string]*region{}
	for _, name := range cfg.Regions {
		r := &region{
			name:           name,
			servers:        map[string]*api.Node{},
			bootPolls:      map[string]int{},
			floatingIPs:    map[string]*api.FloatingIP{},
			pools:          map[string]*pool{},
			securityGroups: map[string]*api.SecurityGroup{},
			keyPairs:       map[string]*api.KeyPair{},
		}
		for poolName, cidr := range cfg.FloatingIPPools {
			rg, err := iputils.GetRange(cidr)
			if err != nil {
				return errors.Wrapf(err, "error initializing memory provider: invalid pool %s", poolName)
			}
			r.pools[poolName] = &pool{addresses: rg, used: map[string]bool{}}
		}
		regions[name] = r
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.regions = regions
	p.locations = api.NewLocationIndex(cfg.Name, cfg.Regions)
	return nil
}

//SetHooks replaces the failure hooks
func (p *Provider) SetHooks(hooks Hooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = hooks
}

//Name of the provider
func (p *Provider) Name() string {
	return p.cfg.Name
}

//Regions sorted region names
func (p *Provider) Regions() []string {
	res := append([]string(nil), p.cfg.Regions...)
	sort.Strings(res)
	return res
}

//Locations location of each region
func (p *Provider) Locations() api.LocationIndex {
	return p.locations
}

func (p *Provider) region(name string) (*region, error) {
	r, ok := p.regions[name]
	if !ok {
		return nil, errors.Errorf("unknown region %s", name)
	}
	return r, nil
}

//ServerManager returns the ServerManager of a region
func (p *Provider) ServerManager(region string) (api.ServerManager, error) {
	r, err := p.region(region)
	if err != nil {
		return nil, err
	}
	return &ServerManager{provider: p, region: r}, nil
}

//KeyPairManager returns the KeyPairManager of a region
func (p *Provider) KeyPairManager(region string) (api.KeyPairManager, error) {
	r, err := p.region(region)
	if err != nil {
		return nil, err
	}
	return &KeyPairManager{provider: p, region: r}, nil
}

//SecurityGroupManager returns the SecurityGroupManager of a region
func (p *Provider) SecurityGroupManager(region string) (api.SecurityGroupManager, error) {
	r, err := p.region(region)
	if err != nil {
		return nil, err
	}
	return &SecurityGroupManager{provider: p, region: r}, nil
}

//FloatingIPManager returns the FloatingIPManager of a region
func (p *Provider) FloatingIPManager(region string) (api.FloatingIPManager, error) {
	r, err := p.region(region)
	if err != nil {
		return nil, err
	}
	if p.cfg.DisableFloatingIPs {
		return nil, api.ErrCapabilityUnavailable
	}
	return &FloatingIPManager{provider: p, region: r}, nil
}

func copyStrings(l []string) []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l...)
}

func (p *Provider) currentHooks() Hooks {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hooks
}
