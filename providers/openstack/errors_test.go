package openstack

import (
	"testing"

	"github.com/SebastienDorgan/anynodes/api"
	gc "github.com/gophercloud/gophercloud"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func httpError(code int, body string) gc.ErrUnexpectedResponseCode {
	return gc.ErrUnexpectedResponseCode{Actual: code, Body: []byte(body)}
}

func TestFaultMessage(t *testing.T) {
	assert.Equal(t, "Quota exceeded", faultMessage([]byte(`{"NeutronError": {"type": "OverQuota", "message": "Quota exceeded"}}`)))
	assert.Equal(t, "Security group web already exists", faultMessage([]byte(`{"badRequest": {"code": 400, "message": "Security group web already exists"}}`)))
	assert.Equal(t, "plain text", faultMessage([]byte(" plain text\n")))
	assert.Equal(t, `{"code": 500}`, faultMessage([]byte(`{"code": 500}`)))
}

func TestProviderError(t *testing.T) {
	assert.Nil(t, ProviderError(nil))
	other := errors.New("boom")
	assert.Equal(t, other, ProviderError(other))
	err := ProviderError(gc.ErrDefault404{ErrUnexpectedResponseCode: httpError(404, `{"itemNotFound": {"message": "Instance x could not be found."}}`)})
	assert.EqualError(t, err, "code: 404, reason: Instance x could not be found.")
}

func TestClassify(t *testing.T) {
	exhausted := []error{
		gc.ErrDefault409{ErrUnexpectedResponseCode: httpError(409, `{"NeutronError": {"type": "IpAddressGenerationFailure", "message": "No more IP addresses available on network"}}`)},
		gc.ErrDefault404{ErrUnexpectedResponseCode: httpError(404, `{"itemNotFound": {"message": "No more floating ips in pool public."}}`)},
		gc.ErrDefault403{ErrUnexpectedResponseCode: httpError(403, `{"forbidden": {"message": "Maximum number of floating ips exceeded (quota)"}}`)},
		httpError(413, `{"overLimit": {"message": "Quota exceeded for floating ips"}}`),
	}
	for _, err := range exhausted {
		c := classify(err, "floating ip", "pool")
		assert.True(t, api.IsResourceExhausted(c), err.Error())
		assert.False(t, api.IsNotFound(c))
	}

	c := classify(gc.ErrDefault404{ErrUnexpectedResponseCode: httpError(404, `{"itemNotFound": {"message": "Floating ip not found"}}`)}, "floating ip", "fip-1")
	assert.True(t, api.IsNotFound(c))
	var nf *api.NotFoundError
	assert.True(t, errors.As(c, &nf))
	assert.Equal(t, "fip-1", nf.ID)

	c = classify(gc.ErrDefault500{ErrUnexpectedResponseCode: httpError(500, `{"computeFault": {"message": "oops"}}`)}, "server", "s")
	assert.False(t, api.IsNotFound(c))
	assert.False(t, api.IsResourceExhausted(c))
	assert.Nil(t, classify(nil, "server", "s"))
}

func TestAlreadyExistsAndDuplicates(t *testing.T) {
	assert.True(t, isAlreadyExists(gc.ErrDefault400{ErrUnexpectedResponseCode: httpError(400, `{"badRequest": {"message": "Security group web already exists"}}`)}))
	assert.False(t, isAlreadyExists(gc.ErrDefault400{ErrUnexpectedResponseCode: httpError(400, `{"badRequest": {"message": "Invalid name"}}`)}))
	assert.False(t, isAlreadyExists(errors.New("already exists")))

	assert.True(t, isDuplicateRule(gc.ErrDefault409{ErrUnexpectedResponseCode: httpError(409, `{"NeutronError": {"type": "SecurityGroupRuleExists", "message": "Security group rule already exists. Rule id is x."}}`)}))
	assert.True(t, isDuplicateRule(gc.ErrDefault400{ErrUnexpectedResponseCode: httpError(400, `{"badRequest": {"message": "This rule already exists in group"}}`)}))
	assert.False(t, isDuplicateRule(gc.ErrDefault404{ErrUnexpectedResponseCode: httpError(404, `{"itemNotFound": {"message": "already exists"}}`)}))
}
