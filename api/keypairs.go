package api

//KeyPair an ssh key pair registered in a region.
//PrivateKey is only known when the key pair has been generated locally.
type KeyPair struct {
	Region      string
	Name        string
	Fingerprint string
	PublicKey   []byte
	PrivateKey  []byte
}

//KeyPairManager manage ssh keys
type KeyPairManager interface {
	Import(name string, publicKey []byte) (*KeyPair, error)
	Get(name string) (*KeyPair, error)
	List() ([]KeyPair, error)
	Delete(name string) error
}
