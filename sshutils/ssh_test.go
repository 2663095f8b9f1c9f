package sshutils_test

import (
	"strings"
	"testing"

	"github.com/SebastienDorgan/anynodes/sshutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestCreateKeyPair(t *testing.T) {
	kp, err := sshutils.CreateKeyPair(2048)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(kp.PublicKey), "ssh-rsa "))
	assert.Contains(t, string(kp.PrivateKey), "RSA PRIVATE KEY")

	signer, err := ssh.ParsePrivateKey(kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa", signer.PublicKey().Type())
}

func TestFingerprint(t *testing.T) {
	kp, err := sshutils.CreateKeyPair(1024)
	require.NoError(t, err)
	fp, err := sshutils.Fingerprint(kp.PublicKey)
	require.NoError(t, err)
	assert.Len(t, strings.Split(fp, ":"), 16)

	_, err = sshutils.Fingerprint([]byte("not a key"))
	assert.Error(t, err)
}
