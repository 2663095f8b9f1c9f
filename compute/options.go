package compute

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//Options compute functions settings
type Options struct {
	//FloatingIPPools pools tried in order before the default pool
	FloatingIPPools []string `mapstructure:"floating_ip_pools"`
	//AutoAssignFloatingIP attach a floating ip to every node reaching the running state
	AutoAssignFloatingIP bool `mapstructure:"auto_assign_floating_ip"`
	//CacheSize maximum number of entries of each resource cache
	CacheSize int `mapstructure:"cache_size"`
	//Parallelism maximum number of nodes launched or destroyed concurrently
	Parallelism int `mapstructure:"parallelism"`
	//NodeRunningTimeout maximum time to wait for a node to leave the pending state
	NodeRunningTimeout time.Duration `mapstructure:"node_running_timeout"`
	//NodePollInterval time between two node status checks
	NodePollInterval time.Duration `mapstructure:"node_poll_interval"`
	//SecurityGroupDescription description of created security groups
	SecurityGroupDescription string `mapstructure:"security_group_description"`
	//KeySize size in bits of generated key pairs
	KeySize int `mapstructure:"key_size"`
}

//DefaultOptions returns the default settings
func DefaultOptions() Options {
	return Options{
		CacheSize:                1000,
		Parallelism:              10,
		NodeRunningTimeout:       10 * time.Minute,
		NodePollInterval:         5 * time.Second,
		SecurityGroupDescription: "created by anynodes",
		KeySize:                  2048,
	}
}

//LoadOptions reads the compute section of a configuration, missing entries keep their default value
func LoadOptions(config io.Reader, format string) (*Options, error) {
	v := viper.New()
	v.SetConfigType(format)
	err := v.ReadConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "error reading compute configuration")
	}
	opts := DefaultOptions()
	err = v.UnmarshalKey("compute", &opts)
	if err != nil {
		return nil, errors.Wrap(err, "error reading compute configuration")
	}
	err = opts.Validate()
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

//Validate checks the settings
func (o Options) Validate() error {
	if o.Parallelism <= 0 {
		return errors.Errorf("invalid parallelism %d", o.Parallelism)
	}
	if o.KeySize < 1024 {
		return errors.Errorf("invalid key size %d", o.KeySize)
	}
	if o.NodeRunningTimeout <= 0 {
		return errors.Errorf("invalid node running timeout %s", o.NodeRunningTimeout)
	}
	if o.NodePollInterval <= 0 {
		return errors.Errorf("invalid node poll interval %s", o.NodePollInterval)
	}
	if o.CacheSize < 0 {
		return errors.Errorf("invalid cache size %d", o.CacheSize)
	}
	return nil
}

//withDefaults returns a copy of o where unset settings take their default value
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CacheSize == 0 {
		o.CacheSize = d.CacheSize
	}
	if o.Parallelism == 0 {
		o.Parallelism = d.Parallelism
	}
	if o.NodeRunningTimeout == 0 {
		o.NodeRunningTimeout = d.NodeRunningTimeout
	}
	if o.NodePollInterval == 0 {
		o.NodePollInterval = d.NodePollInterval
	}
	if o.SecurityGroupDescription == "" {
		o.SecurityGroupDescription = d.SecurityGroupDescription
	}
	if o.KeySize == 0 {
		o.KeySize = d.KeySize
	}
	return o
}
