package transport

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfi/contiki-lwm2m/engine"
)

func TestServerRoundTripsABlockingPost(t *testing.T) {
	var rebooted bool
	defs := []engine.ResourceDef{{
		ID: 4, Kind: engine.KindCallback, Executable: true,
		Callback: engine.Callback{Exec: func(ctx *engine.Context, in []byte, out []byte) int {
			rebooted = true
			return 1
		}},
	}}
	object := engine.NewObject(3, "/3", defs, 1)
	object.Instances[0] = engine.Instance{ID: 0, Used: true, Values: make([]engine.ResourceValue, 1)}

	reg := engine.NewRegistry(engine.DefaultMaxObjects)
	require.NoError(t, reg.Register(object))

	server, err := NewServer("127.0.0.1:0", reg, zerolog.Nop())
	require.NoError(t, err)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx)

	client, err := NewServer("127.0.0.1:0", engine.NewRegistry(1), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()
	go client.Serve(ctx)

	postCtx, postCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer postCancel()
	err = client.BlockingPost(postCtx, server.conn.LocalAddr().String(), "/3/0/4", nil, nil)
	assert.NoError(t, err)
	assert.True(t, rebooted)
}
