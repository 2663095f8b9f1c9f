package tests

import (
	"time"

	"github.com/SebastienDorgan/anynodes/api"
	"github.com/SebastienDorgan/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

//ServerManagerTestSuite test suite for api.ServerManager
type ServerManagerTestSuite struct {
	suite.Suite
	Prov    api.Provider
	Region  string
	ImageID string
	//Wait time between two polls of the server state
	Wait time.Duration
}

func noError() retry.Condition {
	return func(v interface{}, e error) bool {
		return e == nil
	}
}

//DeleteAction wraps a delete function in a retry.Action
func DeleteAction(f func(v string) error, id string) retry.Action {
	return func() (v interface{}, e error) {
		err := f(id)
		return nil, err
	}
}

//WilfulDelete retries a delete until it succeeds or timeout expires
func WilfulDelete(f func(v string) error, id string, every time.Duration, timeout time.Duration) error {
	return retry.With(DeleteAction(f, id)).Every(every).For(timeout).Until(noError()).Go().LastError
}

func running(mgr api.ServerManager, id string) retry.Action {
	return func() (interface{}, error) {
		return mgr.Get(id)
	}
}

func notPending() retry.Condition {
	return func(v interface{}, e error) bool {
		return e == nil && v.(*api.Node).Status != api.NodePending
	}
}

//TestServerManager Canonical test for ServerManager implementation
func (s *ServerManagerTestSuite) TestServerManager() {
	mgr, err := s.Prov.ServerManager(s.Region)
	require.NoError(s.T(), err)

	md := api.EncodeMetadata(nil, "suite", []string{"b", "a"})
	node, err := mgr.Create(api.CreateServerOptions{
		Name:     "suite-node",
		ImageID:  s.ImageID,
		Metadata: md,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.Region, node.ID.Region)
	assert.Equal(s.T(), "suite", node.Group)
	assert.Equal(s.T(), []string{"a", "b"}, node.Tags)
	assert.NotNil(s.T(), node.Location)

	res := retry.With(running(mgr, node.ID.ID)).For(time.Minute).Every(s.Wait).Until(notPending()).Go()
	require.NoError(s.T(), res.LastError)
	require.False(s.T(), res.Timeout)
	assert.Equal(s.T(), api.NodeRunning, res.LastValue.(*api.Node).Status)

	nodes, err := mgr.List()
	assert.NoError(s.T(), err)
	found := false
	for _, n := range nodes {
		found = found || n.ID == node.ID
	}
	assert.True(s.T(), found)

	deleted, err := mgr.Delete(node.ID.ID)
	assert.NoError(s.T(), err)
	assert.True(s.T(), deleted)
	gone, err := mgr.Get(node.ID.ID)
	if err == nil {
		assert.Equal(s.T(), api.NodeTerminated, gone.Status)
	} else {
		assert.True(s.T(), api.IsNotFound(err))
	}

	err = WilfulDelete(func(id string) error {
		_, err := mgr.Delete(id)
		return err
	}, node.ID.ID, s.Wait, time.Minute)
	assert.NoError(s.T(), err)
}
