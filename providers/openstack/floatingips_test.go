package openstack

import (
	"testing"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/floatingips"
	neutronips "github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/stretchr/testify/assert"
)

func TestNovaFloatingIP(t *testing.T) {
	ip := novaFloatingIP(&floatingips.FloatingIP{ID: "1", IP: "172.24.4.3", Pool: "public", InstanceID: "srv", FixedIP: "10.0.0.3"})
	assert.Equal(t, &api.FloatingIP{ID: "1", Address: "172.24.4.3", Pool: "public", ServerID: "srv", FixedIP: "10.0.0.3"}, ip)
	assert.True(t, ip.Attached())
}

func TestNeutronFloatingIPs(t *testing.T) {
	l := neutronFloatingIPs([]neutronips.FloatingIP{
		{ID: "1", FloatingIP: "172.24.4.3", FloatingNetworkID: "ext", PortID: "port-1", FixedIP: "10.0.0.3"},
		{ID: "2", FloatingIP: "172.24.4.4", FloatingNetworkID: "ext"},
	}, map[string]string{"port-1": "srv"})
	assert.Equal(t, []api.FloatingIP{
		{ID: "1", Address: "172.24.4.3", Pool: "ext", ServerID: "srv", FixedIP: "10.0.0.3"},
		{ID: "2", Address: "172.24.4.4", Pool: "ext"},
	}, l)
	assert.False(t, l[1].Attached())
}

func TestCreateWithoutDefaultPool(t *testing.T) {
	_, err := (&NovaFloatingIPManager{}).Create()
	assert.True(t, api.IsResourceExhausted(err))
	_, err = (&NeutronFloatingIPManager{}).Create()
	assert.True(t, api.IsResourceExhausted(err))
}

func TestNovaDissociateDetached(t *testing.T) {
	assert.NoError(t, (&NovaFloatingIPManager{}).Dissociate(api.FloatingIP{ID: "1", Address: "172.24.4.3"}))
}
