package compute

import (
	"time"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/retry"
	"github.com/pkg/errors"
)

//WaitUntilNodeLeavesPending polls a node every interval until it leaves the pending state.
//A node reaching the ERROR state is reported as an error.
func WaitUntilNodeLeavesPending(mgr api.ServerManager, id string, timeout time.Duration, interval time.Duration) (*api.Node, error) {
	get := func() (interface{}, error) {
		return mgr.Get(id)
	}
	finished := func(v interface{}, e error) bool {
		if e != nil {
			return api.IsNotFound(e)
		}
		return v.(*api.Node).Status != api.NodePending
	}
	res := retry.With(get).For(timeout).Every(interval).Until(finished).Go()
	if res.LastError != nil {
		return nil, errors.Wrapf(res.LastError, "error waiting for node %s", id)
	}
	if res.Timeout {
		return nil, errors.Errorf("node %s still pending after %s", id, timeout)
	}
	node := res.LastValue.(*api.Node)
	if node.Status == api.NodeError {
		return nil, errors.Errorf("node %s in error", id)
	}
	return node, nil
}
