package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFakeNetworkReportsConfiguredValues(t *testing.T) {
	n := &FakeNetwork{Access: true, DagHost: "fd00::1", DagOK: true, HasAddr: true, Suffix: [6]byte{1, 2, 3, 4, 5, 6}}

	assert.True(t, n.HasAccess())
	host, ok := n.DAGRoot()
	assert.True(t, ok)
	assert.Equal(t, "fd00::1", host)
	suffix, ok := n.PreferredAddressSuffix()
	assert.True(t, ok)
	assert.Equal(t, [6]byte{1, 2, 3, 4, 5, 6}, suffix)
}

func TestSystemNetworkDAGRootIsAlwaysUnknown(t *testing.T) {
	n := NewSystemNetwork()
	_, ok := n.DAGRoot()
	assert.False(t, ok)
}
