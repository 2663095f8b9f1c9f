package tests

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/sshutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

//KeyPairManagerTestSuite test suite off api.KeyPairManager
type KeyPairManagerTestSuite struct {
	suite.Suite
	Prov   api.Provider
	Region string
}

func hasKeyPair(keypairs []api.KeyPair, name string) bool {
	for _, kp := range keypairs {
		if kp.Name == name {
			return true
		}
	}
	return false
}

//TestKeyPairManager Canonical test for KeyPairManager implementation
func (s *KeyPairManagerTestSuite) TestKeyPairManager() {
	mgr, err := s.Prov.KeyPairManager(s.Region)
	require.NoError(s.T(), err)
	_ = mgr.Delete("pktest")

	keypairs, err := mgr.List()
	assert.NoError(s.T(), err)
	nkeys := len(keypairs)

	generated, err := sshutils.CreateKeyPair(2048)
	require.NoError(s.T(), err)
	kp, err := mgr.Import("pktest", generated.PublicKey)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "pktest", kp.Name)
	fp, err := sshutils.Fingerprint(generated.PublicKey)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), fp, kp.Fingerprint)

	keypairs, err = mgr.List()
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), nkeys+1, len(keypairs))
	assert.True(s.T(), hasKeyPair(keypairs, "pktest"))

	got, err := mgr.Get("pktest")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), kp.Fingerprint, got.Fingerprint)

	err = mgr.Delete("pktest")
	assert.NoError(s.T(), err)
	keypairs, err = mgr.List()
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), nkeys, len(keypairs))
	assert.False(s.T(), hasKeyPair(keypairs, "pktest"))

	_, err = mgr.Get("pktest")
	assert.True(s.T(), api.IsNotFound(err))
}
