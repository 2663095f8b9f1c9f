package api

import "io"

//Provider define a cloud provider
type Provider interface {
	Init(config io.Reader, format string) error
	Name() string
	Regions() []string
	Locations() LocationIndex
	ServerManager(region string) (ServerManager, error)
	KeyPairManager(region string) (KeyPairManager, error)
	SecurityGroupManager(region string) (SecurityGroupManager, error)
	//FloatingIPManager returns ErrCapabilityUnavailable if the region has no floating ip support
	FloatingIPManager(region string) (FloatingIPManager, error)
}
