package openstack

import (
	"github.com/SebastienDorgan/anynodes/api"
	gc "github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/pkg/errors"
)

//KeyPairManager openstack implementation of api.KeyPairManager
type KeyPairManager struct {
	compute *gc.ServiceClient
	region  string
}

func (mgr *KeyPairManager) keyPair(kp *keypairs.KeyPair) *api.KeyPair {
	return &api.KeyPair{
		Region:      mgr.region,
		Name:        kp.Name,
		Fingerprint: kp.Fingerprint,
		PublicKey:   []byte(kp.PublicKey),
	}
}

//Import load a public key
func (mgr *KeyPairManager) Import(name string, publicKey []byte) (*api.KeyPair, error) {
	kp, err := keypairs.Create(mgr.compute, keypairs.CreateOpts{
		Name:      name,
		PublicKey: string(publicKey),
	}).Extract()
	if err != nil {
		return nil, errors.Wrapf(ProviderError(err), "error importing key pair %s", name)
	}
	return mgr.keyPair(kp), nil
}

//Get returns a key pair
func (mgr *KeyPairManager) Get(name string) (*api.KeyPair, error) {
	kp, err := keypairs.Get(mgr.compute, name).Extract()
	if err != nil {
		return nil, errors.Wrap(classify(err, "key pair", name), "error getting key pair")
	}
	return mgr.keyPair(kp), nil
}

//List lists key pairs
func (mgr *KeyPairManager) List() ([]api.KeyPair, error) {
	page, err := keypairs.List(mgr.compute).AllPages()
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing key pairs")
	}
	l, err := keypairs.ExtractKeyPairs(page)
	if err != nil {
		return nil, errors.Wrap(ProviderError(err), "error listing key pairs")
	}
	var res []api.KeyPair
	for i := range l {
		res = append(res, *mgr.keyPair(&l[i]))
	}
	return res, nil
}

//Delete a key pair
func (mgr *KeyPairManager) Delete(name string) error {
	err := keypairs.Delete(mgr.compute, name).ExtractErr()
	if err != nil {
		return errors.Wrap(classify(err, "key pair", name), "error deleting key pair")
	}
	return nil
}
