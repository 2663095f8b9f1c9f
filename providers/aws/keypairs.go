package aws

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
)

//KeyPairManager EC2 implementation of api.KeyPairManager
type KeyPairManager struct {
	ec2    ec2iface.EC2API
	region string
}

//Import load a public key
func (mgr *KeyPairManager) Import(name string, publicKey []byte) (*api.KeyPair, error) {
	out, err := mgr.ec2.ImportKeyPair(&ec2.ImportKeyPairInput{
		DryRun:            aws.Bool(false),
		KeyName:           aws.String(name),
		PublicKeyMaterial: publicKey,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error importing key pair %s", name)
	}
	return &api.KeyPair{
		Region:      mgr.region,
		Name:        aws.StringValue(out.KeyName),
		Fingerprint: aws.StringValue(out.KeyFingerprint),
		PublicKey:   publicKey,
	}, nil
}

func (mgr *KeyPairManager) keyPair(kp *ec2.KeyPairInfo) *api.KeyPair {
	return &api.KeyPair{
		Region:      mgr.region,
		Name:        aws.StringValue(kp.KeyName),
		Fingerprint: aws.StringValue(kp.KeyFingerprint),
	}
}

//Get returns a key pair, EC2 does not return the public key material
func (mgr *KeyPairManager) Get(name string) (*api.KeyPair, error) {
	out, err := mgr.ec2.DescribeKeyPairs(&ec2.DescribeKeyPairsInput{
		KeyNames: []*string{aws.String(name)},
	})
	if err != nil {
		return nil, errors.Wrap(classify(err, "key pair", name), "error getting key pair")
	}
	if len(out.KeyPairs) == 0 {
		return nil, api.NewNotFoundError(nil, "key pair", name)
	}
	return mgr.keyPair(out.KeyPairs[0]), nil
}

//List lists key pairs
func (mgr *KeyPairManager) List() ([]api.KeyPair, error) {
	out, err := mgr.ec2.DescribeKeyPairs(&ec2.DescribeKeyPairsInput{})
	if err != nil {
		return nil, errors.Wrap(err, "error listing key pairs")
	}
	var res []api.KeyPair
	for _, kp := range out.KeyPairs {
		res = append(res, *mgr.keyPair(kp))
	}
	return res, nil
}

//Delete a key pair. EC2 silently accepts the deletion of an unknown key pair.
func (mgr *KeyPairManager) Delete(name string) error {
	_, err := mgr.ec2.DeleteKeyPair(&ec2.DeleteKeyPairInput{
		DryRun:  aws.Bool(false),
		KeyName: aws.String(name),
	})
	if err != nil {
		return errors.Wrap(classify(err, "key pair", name), "error deleting key pair")
	}
	return nil
}
