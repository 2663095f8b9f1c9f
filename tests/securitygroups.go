package tests

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/iputils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

//SecurityGroupManagerTestSuite test suite for api.SecurityGroupManager
type SecurityGroupManagerTestSuite struct {
	suite.Suite
	Prov   api.Provider
	Region string
}

//TestSecurityGroupManager Canonical test for SecurityGroupManager implementation
func (s *SecurityGroupManagerTestSuite) TestSecurityGroupManager() {
	mgr, err := s.Prov.SecurityGroupManager(s.Region)
	require.NoError(s.T(), err)
	sgl, err := mgr.List()
	assert.NoError(s.T(), err)
	l0 := len(sgl)

	res, err := mgr.Create("test_sg", "test security group")
	require.NoError(s.T(), err)
	require.Equal(s.T(), api.Created, res.Outcome)
	sg := res.Group
	assert.Equal(s.T(), "test_sg", sg.Name)

	res, err = mgr.Create("test_sg", "test security group")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), api.AlreadyExists, res.Outcome)

	perm, err := api.NewIngressPermission(api.ProtocolTCP, 0, 10000, []string{iputils.AnyIPv4}, nil)
	require.NoError(s.T(), err)
	err = mgr.AuthorizeIngress(sg.ID, perm)
	assert.NoError(s.T(), err)
	//granting twice is not an error
	err = mgr.AuthorizeIngress(sg.ID, perm)
	assert.NoError(s.T(), err)

	self, err := api.NewIngressPermission(api.ProtocolTCP, 22, 22, nil, []string{sg.ID})
	require.NoError(s.T(), err)
	err = mgr.AuthorizeIngress(sg.ID, self)
	assert.NoError(s.T(), err)

	sgl, err = mgr.List()
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), l0+1, len(sgl))

	sg, err = mgr.Get(sg.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), sg.Allows(perm))
	assert.True(s.T(), sg.Allows(self))

	err = mgr.Delete(sg.ID)
	assert.NoError(s.T(), err)
	sgl, err = mgr.List()
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), l0, len(sgl))
	_, err = mgr.Get(sg.ID)
	assert.True(s.T(), api.IsNotFound(err))
}
