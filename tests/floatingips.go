package tests

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/talgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

//FloatingIPManagerTestSuite test suite for api.FloatingIPManager
type FloatingIPManagerTestSuite struct {
	suite.Suite
	Prov   api.Provider
	Region string
	//Pool a pool of the region with at least one free address
	Pool string
	//Server an existing server floating ips can be attached to
	Server string
}

func findIP(ips []api.FloatingIP, id string) *api.FloatingIP {
	i := talgo.FindFirst(len(ips), func(i int) bool {
		return ips[i].ID == id
	})
	if i < 0 || i >= len(ips) {
		return nil
	}
	return &ips[i]
}

//TestFloatingIPManager Canonical test for FloatingIPManager implementation
func (s *FloatingIPManagerTestSuite) TestFloatingIPManager() {
	mgr, err := s.Prov.FloatingIPManager(s.Region)
	require.NoError(s.T(), err)

	ip, err := mgr.AllocateFromPool(s.Pool)
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), ip.Address)
	assert.False(s.T(), ip.Attached())

	err = mgr.Associate(*ip, s.Server)
	require.NoError(s.T(), err)
	ips, err := mgr.List()
	assert.NoError(s.T(), err)
	listed := findIP(ips, ip.ID)
	require.NotNil(s.T(), listed)
	assert.Equal(s.T(), s.Server, listed.ServerID)

	if mgr.RequiresDetach() {
		err = mgr.Dissociate(*listed)
		assert.NoError(s.T(), err)
		ips, err = mgr.List()
		assert.NoError(s.T(), err)
		assert.False(s.T(), findIP(ips, ip.ID).Attached())
	}

	err = mgr.Delete(ip.ID)
	assert.NoError(s.T(), err)
	ips, err = mgr.List()
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), findIP(ips, ip.ID))
}
