package iputils_test

import (
	"github.com/SebastienDorgan/anynodes/iputils"
	"github.com/stretchr/testify/assert"
	"net"
	"testing"
)

func TestConversions(t *testing.T) {
	ip := net.ParseIP("192.168.0.1")
	ui := iputils.Itou(&ip)
	ip2 := *iputils.Utoi(ui + 1)
	assert.Equal(t, "192.168.0.2", ip2.String())
}

func TestRange(t *testing.T) {
	r, err := iputils.GetRange("192.168.0.0/24")
	assert.NoError(t, err)
	assert.Equal(t, "192.168.0.1", r.FirstIP.String())
	assert.Equal(t, "192.168.0.254", r.LastIP.String())
	assert.Equal(t, 254, r.Size())
	r, err = iputils.GetRange("192.168.0.0/16")
	assert.NoError(t, err)
	assert.Equal(t, "192.168.0.1", r.FirstIP.String())
	assert.Equal(t, "192.168.255.254", r.LastIP.String())
	r, err = iputils.GetRange("192.0.0.0/8")
	assert.NoError(t, err)
	assert.Equal(t, "192.0.0.1", r.FirstIP.String())
	assert.Equal(t, "192.255.255.254", r.LastIP.String())
	r, err = iputils.GetRange("10.0.0.0/30")
	assert.NoError(t, err)
	assert.Equal(t, 2, r.Size())
	assert.Equal(t, "10.0.0.2", r.Nth(1).String())
	assert.Nil(t, r.Nth(2))
	_, err = iputils.GetRange("10.0.0.0/31")
	assert.Error(t, err)
}

func TestValidateCIDR(t *testing.T) {
	assert.NoError(t, iputils.ValidateCIDR(iputils.AnyIPv4))
	assert.NoError(t, iputils.ValidateCIDR("fd00::/8"))
	assert.Error(t, iputils.ValidateCIDR("10.0.0.1"))
	assert.Error(t, iputils.ValidateCIDR("300.0.0.0/8"))
}
