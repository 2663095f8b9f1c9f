//Package anynodes creates node groups with the floating ips, security groups and key pairs they
//need on OpenStack, AWS EC2 or an in memory cloud.
package anynodes

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/compute"
	"github.com/SebastienDorgan/anynodes/providers/aws"
	"github.com/SebastienDorgan/anynodes/providers/memory"
	"github.com/SebastienDorgan/anynodes/providers/openstack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

//ProviderFactory creates an uninitialized provider
type ProviderFactory func() api.Provider

var factories = map[string]ProviderFactory{
	"openstack": func() api.Provider { return &openstack.Provider{} },
	"aws":       func() api.Provider { return &aws.Provider{} },
	"memory":    func() api.Provider { return &memory.Provider{} },
}

//Providers names of the known provider kinds
func Providers() []string {
	var names []string
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

//NewProvider creates and initializes a provider of the given kind
func NewProvider(kind string, config io.Reader, format string) (api.Provider, error) {
	f, ok := factories[kind]
	if !ok {
		return nil, errors.Errorf("unknown provider %s", kind)
	}
	p := f()
	err := p.Init(config, format)
	if err != nil {
		return nil, errors.Wrapf(err, "error initializing provider %s", kind)
	}
	return p, nil
}

/*Open creates a compute service from a single configuration document:
	provider: openstack
	openstack:
	  identity_endpoint: ...
	compute:
	  auto_assign_floating_ip: true
The section named after the provider configures it, the compute section configures the service.
*/
func Open(config io.Reader, format string, log logrus.FieldLogger, metrics *compute.Metrics) (*compute.Service, error) {
	raw, err := io.ReadAll(config)
	if err != nil {
		return nil, errors.Wrap(err, "error reading configuration")
	}
	v := viper.New()
	v.SetConfigType(format)
	err = v.ReadConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "error reading configuration")
	}
	kind := v.GetString("provider")
	if kind == "" {
		return nil, errors.Errorf("error reading configuration: no provider")
	}
	//providers read their own document, the section is re-encoded in JSON
	section, err := json.Marshal(v.GetStringMap(kind))
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s configuration", kind)
	}
	p, err := NewProvider(kind, bytes.NewReader(section), "json")
	if err != nil {
		return nil, err
	}
	opts, err := compute.LoadOptions(bytes.NewReader(raw), format)
	if err != nil {
		return nil, err
	}
	return compute.NewService(p, *opts, log, metrics)
}
