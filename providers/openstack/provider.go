package openstack

import (
	"io"
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	gc "github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/common/extensions"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

//Nova extension serving floating ips when Neutron is not used
const novaFloatingIPExtension = "os-floating-ips"

/*Config fields are the union of those recognized by each OpenStack identity implementation and
provider.
*/
type Config struct {
	// IdentityEndpoint specifies the HTTP endpoint that is required to work with
	// the Identity API of the appropriate version.
	IdentityEndpoint string `mapstructure:"identity_endpoint"`

	// Username is required if using Identity V2 API. In Identity V3, either
	// UserID or a combination of Username and DomainID or DomainName are needed.
	Username string `mapstructure:"username"`
	UserID   string `mapstructure:"user_id"`

	Password string `mapstructure:"password"`

	// At most one of DomainID and DomainName must be provided if using Username
	// with Identity V3.
	DomainID   string `mapstructure:"domain_id"`
	DomainName string `mapstructure:"domain_name"`

	TenantID   string `mapstructure:"tenant_id"`
	TenantName string `mapstructure:"tenant_name"`

	// AllowReauth lets gophercloud cache the credentials and re-authenticate when the token expires
	AllowReauth bool `mapstructure:"allow_reauth"`

	// TokenID allows users to authenticate with an authentication token ID.
	TokenID string `mapstructure:"token_id"`

	//Regions (data centers) managed by the provider
	Regions []string `mapstructure:"regions"`

	//FloatingIPPool name of the external network (neutron) or pool (nova) used as default pool
	FloatingIPPool string `mapstructure:"floating_ip_pool"`

	//UseNeutron manage floating ips and security groups with Neutron when the region has a network endpoint
	UseNeutron bool `mapstructure:"use_neutron"`

	//NetworkID network new servers are attached to, optional
	NetworkID string `mapstructure:"network_id"`
}

type regionServices struct {
	name    string
	compute *gc.ServiceClient
	//nil when the region has no network endpoint
	network *gc.ServiceClient
	//nova floating ip extension is available
	novaFloatingIPs bool
}

//Provider OpenStack provider
type Provider struct {
	//Log logger used to report dropped security rules, defaults to the logrus standard logger
	Log logrus.FieldLogger

	cfg       Config
	client    *gc.ProviderClient
	regions   map[string]*regionServices
	locations api.LocationIndex
}

//ReadConfig decodes an OpenStack provider configuration
func ReadConfig(config io.Reader, format string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(format)
	err := v.ReadConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "error reading provider configuration")
	}
	cfg := Config{}
	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "error reading provider configuration")
	}
	if len(cfg.Regions) == 0 {
		return nil, errors.Errorf("error reading provider configuration: no region")
	}
	return &cfg, nil
}

//Init initialize OpenStack Provider
func (p *Provider) Init(config io.Reader, format string) error {
	cfg, err := ReadConfig(config, format)
	if err != nil {
		return err
	}
	opts := gc.AuthOptions{
		IdentityEndpoint: cfg.IdentityEndpoint,
		Username:         cfg.Username,
		UserID:           cfg.UserID,
		Password:         cfg.Password,
		DomainID:         cfg.DomainID,
		DomainName:       cfg.DomainName,
		TenantID:         cfg.TenantID,
		TenantName:       cfg.TenantName,
		AllowReauth:      cfg.AllowReauth,
		TokenID:          cfg.TokenID,
	}

	// Openstack client
	p.client, err = openstack.AuthenticatedClient(opts)
	if err != nil {
		return errors.Wrap(ProviderError(err), "error initializing openstack driver")
	}
	p.regions = map[string]*regionServices{}
	for _, region := range cfg.Regions {
		svc, err := p.regionServices(region)
		if err != nil {
			return err
		}
		p.regions[region] = svc
	}
	p.cfg = *cfg
	p.locations = api.NewLocationIndex("openstack", cfg.Regions)
	return nil
}

func (p *Provider) regionServices(region string) (*regionServices, error) {
	// Compute API
	compute, err := openstack.NewComputeV2(p.client, gc.EndpointOpts{
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrapf(ProviderError(err), "error initializing openstack driver in region %s", region)
	}
	svc := &regionServices{name: region, compute: compute}
	//Network API is optional
	network, err := openstack.NewNetworkV2(p.client, gc.EndpointOpts{
		Name:   "neutron",
		Region: region,
	})
	if err == nil {
		svc.network = network
	}
	_, err = extensions.Get(compute, novaFloatingIPExtension).Extract()
	svc.novaFloatingIPs = err == nil
	return svc, nil
}

func (p *Provider) logger() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

func (p *Provider) region(name string) (*regionServices, error) {
	svc, ok := p.regions[name]
	if !ok {
		return nil, errors.Errorf("unknown region %s", name)
	}
	return svc, nil
}

func (p *Provider) neutron(svc *regionServices) bool {
	return p.cfg.UseNeutron && svc.network != nil
}

//Name of the provider
func (p *Provider) Name() string {
	return "openstack"
}

//Regions configured regions
func (p *Provider) Regions() []string {
	res := append([]string(nil), p.cfg.Regions...)
	sort.Strings(res)
	return res
}

//Locations location of each region
func (p *Provider) Locations() api.LocationIndex {
	return p.locations
}

//ServerManager returns the Nova ServerManager of a region
func (p *Provider) ServerManager(region string) (api.ServerManager, error) {
	svc, err := p.region(region)
	if err != nil {
		return nil, err
	}
	return &ServerManager{
		compute:   svc.compute,
		region:    region,
		networkID: p.cfg.NetworkID,
		locations: p.locations,
	}, nil
}

//KeyPairManager returns the Nova KeyPairManager of a region
func (p *Provider) KeyPairManager(region string) (api.KeyPairManager, error) {
	svc, err := p.region(region)
	if err != nil {
		return nil, err
	}
	return &KeyPairManager{compute: svc.compute, region: region}, nil
}

//SecurityGroupManager returns the Neutron or Nova SecurityGroupManager of a region
func (p *Provider) SecurityGroupManager(region string) (api.SecurityGroupManager, error) {
	svc, err := p.region(region)
	if err != nil {
		return nil, err
	}
	if p.neutron(svc) {
		return &NeutronSecurityGroupManager{network: svc.network, region: region}, nil
	}
	return &NovaSecurityGroupManager{compute: svc.compute, region: region, log: p.logger()}, nil
}

//FloatingIPManager returns the Neutron or Nova FloatingIPManager of a region.
//api.ErrCapabilityUnavailable is returned when neither is available.
func (p *Provider) FloatingIPManager(region string) (api.FloatingIPManager, error) {
	svc, err := p.region(region)
	if err != nil {
		return nil, err
	}
	return selectFloatingIPManager(svc, p.cfg)
}

func selectFloatingIPManager(svc *regionServices, cfg Config) (api.FloatingIPManager, error) {
	if cfg.UseNeutron && svc.network != nil {
		return &NeutronFloatingIPManager{
			network:     svc.network,
			defaultPool: cfg.FloatingIPPool,
		}, nil
	}
	if svc.novaFloatingIPs {
		return &NovaFloatingIPManager{
			compute:     svc.compute,
			defaultPool: cfg.FloatingIPPool,
		}, nil
	}
	return nil, api.ErrCapabilityUnavailable
}
