package aws

import (
	"io"
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//Config AWS session configuration
type Config struct {
	// AWS Regions managed by the provider
	Regions []string `mapstructure:"regions"`

	// AWS Access key ID
	AccessKeyID string `mapstructure:"access_key_id"`

	// AWS Secret Access Key
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// AWS Session Token
	SessionToken string `mapstructure:"session_token"`

	// VPC security groups are created in, the default VPC is used when empty
	VpcID string `mapstructure:"vpc_id"`
}

//Retrieve adapts Config to AWS Provider interface
func (cfg *Config) Retrieve() (credentials.Value, error) {
	return credentials.Value{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
		ProviderName:    "anynodes",
	}, nil
}

//IsExpired adapts Config to AWS Provider interface
func (cfg *Config) IsExpired() bool {
	return false
}

//Provider AWS provider
type Provider struct {
	cfg       Config
	clients   map[string]ec2iface.EC2API
	locations api.LocationIndex
}

//NewProvider creates a provider using one EC2 client per region
func NewProvider(cfg Config, clients map[string]ec2iface.EC2API) *Provider {
	p := &Provider{}
	p.setClients(cfg, clients)
	return p
}

func (p *Provider) setClients(cfg Config, clients map[string]ec2iface.EC2API) {
	regions := make([]string, 0, len(clients))
	for r := range clients {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	cfg.Regions = regions
	p.cfg = cfg
	p.clients = clients
	p.locations = api.NewLocationIndex("aws-ec2", regions)
}

//ReadConfig decodes an AWS provider configuration
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

//Init initialize AWS Provider
func (p *Provider) Init(config io.Reader, format string) error {
	cfg, err := ReadConfig(config, format)
	if err != nil {
		return err
	}
	clients := map[string]ec2iface.EC2API{}
	for _, region := range cfg.Regions {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(region),
			Credentials: credentials.NewCredentials(cfg),
		})
		if err != nil {
			return errors.Wrapf(err, "error creating provider session in region %s", region)
		}
		clients[region] = ec2.New(sess)
	}
	p.setClients(*cfg, clients)
	return nil
}

func (p *Provider) client(region string) (ec2iface.EC2API, error) {
	c, ok := p.clients[region]
	if !ok {
		return nil, errors.Errorf("unknown region %s", region)
	}
	return c, nil
}

//Name of the provider
func (p *Provider) Name() string {
	return "aws-ec2"
}

//Regions configured regions
func (p *Provider) Regions() []string {
	return append([]string(nil), p.cfg.Regions...)
}

//Locations location of each region
func (p *Provider) Locations() api.LocationIndex {
	return p.locations
}

//ServerManager returns the EC2 instances manager of a region
func (p *Provider) ServerManager(region string) (api.ServerManager, error) {
	c, err := p.client(region)
	if err != nil {
		return nil, err
	}
	return &ServerManager{ec2: c, region: region, vpcID: p.cfg.VpcID, locations: p.locations}, nil
}

//KeyPairManager returns the EC2 key pair manager of a region
func (p *Provider) KeyPairManager(region string) (api.KeyPairManager, error) {
	c, err := p.client(region)
	if err != nil {
		return nil, err
	}
	return &KeyPairManager{ec2: c, region: region}, nil
}

//SecurityGroupManager returns the EC2 security group manager of a region
func (p *Provider) SecurityGroupManager(region string) (api.SecurityGroupManager, error) {
	c, err := p.client(region)
	if err != nil {
		return nil, err
	}
	return &SecurityGroupManager{ec2: c, region: region, vpcID: p.cfg.VpcID}, nil
}

//FloatingIPManager returns the Elastic IP manager of a region
func (p *Provider) FloatingIPManager(region string) (api.FloatingIPManager, error) {
	c, err := p.client(region)
	if err != nil {
		return nil, err
	}
	return &ElasticIPManager{ec2: c}, nil
}
