package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil resource service returns error", func(t *testing.T) {
		server, err := NewServer(testTenant, &Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingResourceService)
	})

	t.Run("empty tenant returns error", func(t *testing.T) {
		server, err := NewServer("", &Ports{Resources: &mockResourceService{}})
		assert.ErrorIs(t, err, ErrMissingTenant)
		assert.Nil(t, server)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(testTenant, &Ports{Resources: &mockResourceService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("resources only is valid", func(t *testing.T) {
		ports := &Ports{Resources: &mockResourceService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Resources: &mockResourceService{},
			Sync:      &mockSyncOrchestrator{},
			Pushback:  &mockPushbackService{},
			Sites:     &mockSiteService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
