package compute

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/sshutils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//KeyPairProvisioner generates and registers the key pair of a node group
type KeyPairProvisioner struct {
	provider api.Provider
	keySize  int
	log      logrus.FieldLogger
}

//NewKeyPairProvisioner creates a KeyPairProvisioner generating keys of keySize bits
func NewKeyPairProvisioner(provider api.Provider, keySize int, log logrus.FieldLogger) *KeyPairProvisioner {
	return &KeyPairProvisioner{
		provider: provider,
		keySize:  keySize,
		log:      loggerOrDefault(log),
	}
}

//KeyPairName name of a key pair generated for group
func KeyPairName(group string) string {
	return OwnedPrefix + group + "-" + uuid.New().String()[:8]
}

//Ensure generates a key pair for the node group key.Name and imports it in key.Region.
//The returned key pair holds the private key.
func (p *KeyPairProvisioner) Ensure(key api.RegionAndName) (*api.KeyPair, error) {
	mgr, err := p.provider.KeyPairManager(key.Region)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating key pair of group %s", key)
	}
	generated, err := sshutils.CreateKeyPair(p.keySize)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating key pair of group %s", key)
	}
	name := KeyPairName(key.Name)
	kp, err := mgr.Import(name, generated.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "error importing key pair %s", name)
	}
	kp.Region = key.Region
	kp.PrivateKey = generated.PrivateKey
	p.log.WithFields(logrus.Fields{"region": key.Region, "group": key.Name, "keypair": name}).Debug("key pair created")
	return kp, nil
}
