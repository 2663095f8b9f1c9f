package memory

import (
	"sort"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/anynodes/sshutils"
	"github.com/pkg/errors"
)

//KeyPairManager in-memory api.KeyPairManager
type KeyPairManager struct {
	provider *Provider
	region   *region
}

//Import registers a public key under name
func (mgr *KeyPairManager) Import(name string, publicKey []byte) (*api.KeyPair, error) {
	fp, err := sshutils.Fingerprint(publicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "error importing key pair %s", name)
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	if _, ok := mgr.region.keyPairs[name]; ok {
		return nil, errors.Errorf("key pair %s already exists", name)
	}
	kp := &api.KeyPair{
		Region:      mgr.region.name,
		Name:        name,
		Fingerprint: fp,
		PublicKey:   append([]byte(nil), publicKey...),
	}
	mgr.region.keyPairs[name] = kp
	res := *kp
	return &res, nil
}

//Get returns a key pair
func (mgr *KeyPairManager) Get(name string) (*api.KeyPair, error) {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	kp, ok := mgr.region.keyPairs[name]
	if !ok {
		return nil, api.NewNotFoundError(nil, "key pair", name)
	}
	res := *kp
	return &res, nil
}

//List lists the key pairs sorted by name
func (mgr *KeyPairManager) List() ([]api.KeyPair, error) {
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	var res []api.KeyPair
	for _, kp := range mgr.region.keyPairs {
		res = append(res, *kp)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res, nil
}

//Delete deletes a key pair
func (mgr *KeyPairManager) Delete(name string) error {
	if h := mgr.provider.currentHooks(); h.DeleteKeyPair != nil {
		if err := h.DeleteKeyPair(mgr.region.name, name); err != nil {
			return err
		}
	}
	mgr.provider.mu.Lock()
	defer mgr.provider.mu.Unlock()
	if _, ok := mgr.region.keyPairs[name]; !ok {
		return api.NewNotFoundError(nil, "key pair", name)
	}
	delete(mgr.region.keyPairs, name)
	return nil
}
