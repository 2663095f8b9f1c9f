package api_test

import (
	"testing"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/iputils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIngressPermission(t *testing.T) {
	p, err := api.NewIngressPermission(api.ProtocolTCP, 80, 80, []string{iputils.AnyIPv4}, nil)
	require.NoError(t, err)
	assert.Equal(t, api.PortRange{From: 80, To: 80}, p.PortRange)

	_, err = api.NewIngressPermission("sctp", 80, 80, []string{iputils.AnyIPv4}, nil)
	assert.Error(t, err)
	_, err = api.NewIngressPermission(api.ProtocolTCP, 443, 80, []string{iputils.AnyIPv4}, nil)
	assert.Error(t, err)
	_, err = api.NewIngressPermission(api.ProtocolTCP, 0, 70000, []string{iputils.AnyIPv4}, nil)
	assert.Error(t, err)
	_, err = api.NewIngressPermission(api.ProtocolTCP, -1, -1, []string{iputils.AnyIPv4}, nil)
	assert.Error(t, err)
	_, err = api.NewIngressPermission(api.ProtocolICMP, -1, -1, []string{iputils.AnyIPv4}, nil)
	assert.NoError(t, err)
	_, err = api.NewIngressPermission(api.ProtocolTCP, 22, 22, []string{"0.0.0.0"}, nil)
	assert.Error(t, err)
	_, err = api.NewIngressPermission(api.ProtocolTCP, 22, 22, nil, []string{" "})
	assert.Error(t, err)
	_, err = api.NewIngressPermission(api.ProtocolTCP, 22, 22, nil, nil)
	assert.Error(t, err)
}

func TestSecurityGroupAllows(t *testing.T) {
	wide, err := api.NewIngressPermission(api.ProtocolTCP, 1, 1024, []string{iputils.AnyIPv4, "10.0.0.0/8"}, []string{"sg-1"})
	require.NoError(t, err)
	g := api.SecurityGroup{ID: "sg-1", Permissions: []api.IngressPermission{wide}}

	http, _ := api.NewIngressPermission(api.ProtocolTCP, 80, 80, []string{iputils.AnyIPv4}, nil)
	self, _ := api.NewIngressPermission(api.ProtocolTCP, 443, 443, nil, []string{"sg-1"})
	other, _ := api.NewIngressPermission(api.ProtocolTCP, 443, 443, nil, []string{"sg-2"})
	high, _ := api.NewIngressPermission(api.ProtocolTCP, 8080, 8080, []string{iputils.AnyIPv4}, nil)
	udp, _ := api.NewIngressPermission(api.ProtocolUDP, 80, 80, []string{iputils.AnyIPv4}, nil)
	assert.True(t, g.Allows(http))
	assert.True(t, g.Allows(self))
	assert.False(t, g.Allows(other))
	assert.False(t, g.Allows(high))
	assert.False(t, g.Allows(udp))
}
