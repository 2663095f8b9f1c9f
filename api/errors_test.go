package api_test

import (
	"fmt"
	"testing"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	err := error(api.NewResourceExhaustedError(fmt.Errorf("quota exceeded"), "floating ip"))
	assert.True(t, api.IsResourceExhausted(err))
	assert.False(t, api.IsNotFound(err))

	err = errors.Wrap(err, "error allocating from pool public")
	assert.True(t, api.IsResourceExhausted(err))

	err = api.NewErrorStack(err, "end of stack", "Abc", 456)
	assert.True(t, api.IsResourceExhausted(err))
	assert.Contains(t, err.Error(), "Caused by: error allocating from pool public")
	assert.Contains(t, err.Error(), "Abc")
}

func TestNotFound(t *testing.T) {
	err := errors.Wrapf(api.NewNotFoundError(nil, "server", "i-1234"), "error getting server %s", "i-1234")
	assert.True(t, api.IsNotFound(err))
	var nf *api.NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "server", nf.Kind)
	assert.Equal(t, "i-1234", nf.ID)
}

func TestInsufficientResources(t *testing.T) {
	id := api.RegionAndID{Region: "RegionOne", ID: "srv-1"}
	err := error(api.NewInsufficientResourcesError(nil, id))
	assert.True(t, api.IsInsufficientResources(err))
	assert.Contains(t, err.Error(), "RegionOne/srv-1")
	var ir *api.InsufficientResourcesError
	assert.True(t, errors.As(err, &ir))
	assert.Equal(t, id, ir.NodeID)
}

func TestNewErrorStackFromError(t *testing.T) {
	assert.Nil(t, api.NewErrorStackFromError(nil, nil))
	err := api.NewErrorStackFromError(fmt.Errorf("cause"), fmt.Errorf("message"))
	assert.Equal(t, "message\nCaused by: cause", err.Error())
}
