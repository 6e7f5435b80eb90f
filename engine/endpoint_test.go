package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveEndpointPrefersConfiguredName(t *testing.T) {
	name := DeriveEndpoint("my-fixed-endpoint", "node", &fakeNetwork{})
	assert.Equal(t, "my-fixed-endpoint", name)
}

func TestDeriveEndpointAppendsAddressSuffix(t *testing.T) {
	network := &fakeNetwork{suffixOK: true, suffix: [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}}
	name := DeriveEndpoint("", "node-", network)
	assert.Equal(t, "node-DEADBEEF0001", name)
}

func TestDeriveEndpointTruncatesLongPrefix(t *testing.T) {
	network := &fakeNetwork{suffixOK: true, suffix: [6]byte{0, 0, 0, 0, 0, 1}}
	longPrefix := "a-very-long-node-name-prefix-indeed"
	name := DeriveEndpoint("", longPrefix, network)
	assert.LessOrEqual(t, len(name), endpointBufferSize-endpointQueryOverhead)
	assert.True(t, len(name) >= 12)
}

func TestDeriveEndpointFallsBackToPrefixWithoutAddress(t *testing.T) {
	name := DeriveEndpoint("", "node-only", &fakeNetwork{suffixOK: false})
	assert.Equal(t, "node-only", name)
}
