package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	posts []fakePost
	err   error
}

type fakePost struct {
	addr    string
	path    string
	query   []string
	payload []byte
}

func (f *fakeTransport) BlockingPost(ctx context.Context, addr, path string, query []string, payload []byte) error {
	f.posts = append(f.posts, fakePost{addr, path, query, append([]byte(nil), payload...)})
	return f.err
}

type fakeNetwork struct {
	hasAccess bool
	dagRoot   string
	dagOK     bool
	suffix    [6]byte
	suffixOK  bool
}

func (f *fakeNetwork) HasAccess() bool                           { return f.hasAccess }
func (f *fakeNetwork) DAGRoot() (string, bool)                   { return f.dagRoot, f.dagOK }
func (f *fakeNetwork) PreferredAddressSuffix() ([6]byte, bool)   { return f.suffix, f.suffixOK }

func TestClientIdlesWithoutNetworkAccess(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	transport := &fakeTransport{}
	network := &fakeNetwork{hasAccess: false}
	client := NewClient(reg, transport, network, "ep-test")
	client.UseRegistrationServer("server.example:5683")

	require.NoError(t, client.Tick(context.Background()))
	assert.Equal(t, StateIdle, client.State())
	assert.Empty(t, transport.posts)
}

func TestClientRegistrationPayloadListsAllUsedInstances(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	device := NewObject(3, "/3", nil, 1)
	device.Instances[0] = Instance{ID: 0, Used: true}
	ipso := NewObject(3312, "/3312", nil, 2)
	ipso.Instances[0] = Instance{ID: 0, Used: true}
	ipso.Instances[1] = Instance{ID: 1, Used: true}
	require.NoError(t, reg.Register(device))
	require.NoError(t, reg.Register(ipso))

	transport := &fakeTransport{}
	network := &fakeNetwork{hasAccess: true}
	client := NewClient(reg, transport, network, "ep-test")
	client.UseRegistrationServer("server.example:5683")

	require.NoError(t, client.Tick(context.Background()))
	assert.Equal(t, StateRegistered, client.State())
	require.Len(t, transport.posts, 1)
	assert.Equal(t, "/rd", transport.posts[0].path)
	assert.Equal(t, "<3/0>,<3312/0>,<3312/1>", string(transport.posts[0].payload))
}

func registerSecurityWithServerURI(t *testing.T, reg *Registry, uri string) {
	t.Helper()
	security := NewObject(0, "/0", []ResourceDef{{ID: securityResourceServerURI, Kind: KindString}}, 1)
	security.Instances[0] = Instance{ID: 0, Used: true, Values: []ResourceValue{{Str: uri}}}
	require.NoError(t, reg.Register(security))
}

func TestClientBootstrapThenRegistrationSequence(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	transport := &fakeTransport{}
	network := &fakeNetwork{hasAccess: true}
	client := NewClient(reg, transport, network, "ep-test")
	client.UseBootstrapServer("bootstrap.example:5683")
	client.UseRegistrationServer("")

	require.NoError(t, client.Tick(context.Background()))
	assert.Equal(t, StateBootstrapRequested, client.State())
	require.Len(t, transport.posts, 1)
	assert.Equal(t, "/bs", transport.posts[0].path)

	// The bootstrap server writes its Security object back out-of-band;
	// a resting tick before that write lands is an error, not a crash.
	assert.Error(t, client.Tick(context.Background()))
	assert.Equal(t, StateBootstrapRequested, client.State())

	registerSecurityWithServerURI(t, reg, "coap://server.example:5683")

	require.NoError(t, client.Tick(context.Background()))
	assert.Equal(t, StateBootstrapServerKnown, client.State())

	require.NoError(t, client.Tick(context.Background()))
	assert.Equal(t, StateRegistered, client.State())
	require.Len(t, transport.posts, 2)
	assert.Equal(t, "/rd", transport.posts[1].path)
	assert.Equal(t, "server.example:5683", transport.posts[1].addr)
}

func TestClientRejectsSecureConfiguredBootstrapAddress(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	transport := &fakeTransport{}
	network := &fakeNetwork{hasAccess: true}
	client := NewClient(reg, transport, network, "ep-test")
	client.UseBootstrapServer("coaps://bootstrap.example:5684")

	err := client.Tick(context.Background())
	assert.Error(t, err)
	assert.Empty(t, transport.posts)
}

func TestClientRejectsSecureBootstrapServerURI(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	transport := &fakeTransport{}
	network := &fakeNetwork{hasAccess: true}
	client := NewClient(reg, transport, network, "ep-test")
	client.UseBootstrapServer("bootstrap.example:5683")
	client.UseRegistrationServer("")

	require.NoError(t, client.Tick(context.Background()))
	assert.Equal(t, StateBootstrapRequested, client.State())

	registerSecurityWithServerURI(t, reg, "coaps://server.example:5684")

	err := client.Tick(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateIdle, client.State())
}

func TestClientFallsBackToDAGRoot(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	transport := &fakeTransport{}
	network := &fakeNetwork{hasAccess: true, dagRoot: "[fd00::1]:5683", dagOK: true}
	client := NewClient(reg, transport, network, "ep-test")
	client.UseRegistrationServer("")

	require.NoError(t, client.Tick(context.Background()))
	require.Len(t, transport.posts, 1)
	assert.Equal(t, "[fd00::1]:5683", transport.posts[0].addr)
}
