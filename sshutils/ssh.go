package sshutils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

//KeyPair a key pair
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// CreateKeyPair creates a key pair using bitsize bits
func CreateKeyPair(bitsize int) (pair *KeyPair, err error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bitsize)
	if err != nil {
		return nil, errors.Wrap(err, "error generating rsa key")
	}
	publicKey := privateKey.PublicKey
	pub, err := ssh.NewPublicKey(&publicKey)
	if err != nil {
		return nil, err
	}
	publicKeyBytes := ssh.MarshalAuthorizedKey(pub)
	priBytes := x509.MarshalPKCS1PrivateKey(privateKey)
	privateKeyBytes := pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: priBytes,
		},
	)
	return &KeyPair{
		PublicKey:  publicKeyBytes,
		PrivateKey: privateKeyBytes,
	}, nil
}

//Fingerprint returns the MD5 fingerprint of an authorized_keys formatted public key, the format
//the compute APIs report
func Fingerprint(publicKey []byte) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "invalid public key")
	}
	return ssh.FingerprintLegacyMD5(pub), nil
}
