package ipso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddServerInstance(t *testing.T) {
	object := NewServer(1)
	slot, err := AddServerInstance(object, 7, 123, 86400)
	require.NoError(t, err)

	inst := object.Instances[slot]
	assert.Equal(t, uint16(7), inst.ID)
	assert.Equal(t, int64(123), inst.Values[definitionIndex(object, ResourceServerShortServerID)].Int)
	assert.Equal(t, int64(86400), inst.Values[definitionIndex(object, ResourceLifetime)].Int)
}
