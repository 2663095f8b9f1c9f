package aws

import (
	"github.com/SebastienDorgan/anynodes/api"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/pkg/errors"
)

//errorCode returns the EC2 error code of err or an empty string
func errorCode(err error) string {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code()
	}
	return ""
}

func isNotFound(err error) bool {
	switch errorCode(err) {
	case "InvalidInstanceID.NotFound", "InvalidGroup.NotFound", "InvalidKeyPair.NotFound",
		"InvalidAllocationID.NotFound", "InvalidAssociationID.NotFound", "InvalidAddress.NotFound":
		return true
	}
	return false
}

func isAlreadyExists(err error) bool {
	switch errorCode(err) {
	case "InvalidGroup.Duplicate", "InvalidKeyPair.Duplicate":
		return true
	}
	return false
}

func isDuplicateRule(err error) bool {
	return errorCode(err) == "InvalidPermission.Duplicate"
}

func isExhausted(err error) bool {
	switch errorCode(err) {
	case "AddressLimitExceeded", "InsufficientAddressCapacity", "InsufficientFreeAddressesInSubnet":
		return true
	}
	return false
}

//classify maps an EC2 error onto the api error kinds
func classify(err error, kind string, id string) error {
	if err == nil {
		return nil
	}
	if isExhausted(err) {
		return api.NewResourceExhaustedError(err, kind)
	}
	if isNotFound(err) {
		return api.NewNotFoundError(err, kind, id)
	}
	return err
}
