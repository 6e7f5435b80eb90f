package ipso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSecurityInstance(t *testing.T) {
	object := NewSecurity(2)
	slot, err := AddSecurityInstance(object, 0, "coap://bootstrap.example:5683", true, "", "", 0)
	require.NoError(t, err)

	inst := object.Instances[slot]
	assert.True(t, inst.Used)
	assert.Equal(t, "coap://bootstrap.example:5683", inst.Values[definitionIndex(object, ResourceServerURI)].Str)
	assert.True(t, inst.Values[definitionIndex(object, ResourceBootstrap)].Bool)
}

func TestAddSecurityInstanceFailsWhenFull(t *testing.T) {
	object := NewSecurity(1)
	_, err := AddSecurityInstance(object, 0, "coap://a", true, "", "", 0)
	require.NoError(t, err)

	_, err = AddSecurityInstance(object, 1, "coap://b", false, "id", "key", 123)
	assert.Error(t, err)
}
