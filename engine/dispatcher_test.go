package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponseWriter struct {
	code          Code
	contentFormat int
	payload       []byte
}

func (f *fakeResponseWriter) SetCode(c Code)            { f.code = c }
func (f *fakeResponseWriter) SetContentFormat(cf int)   { f.contentFormat = cf }
func (f *fakeResponseWriter) Write(payload []byte)      { f.payload = payload }

func powerControlObject() *Object {
	defs := []ResourceDef{
		{ID: 5850, Kind: KindBoolean, Readable: true, Writable: true},
		{ID: 5852, Kind: KindInt, Readable: true, Writable: true},
	}
	object := NewObject(3312, "/3312", defs, 2)
	object.Instances[0] = Instance{ID: 0, Used: true, Values: make([]ResourceValue, len(defs))}
	return object
}

func TestDispatchResourceWriteThenRead(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(powerControlObject()))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodPut, Path: "/3312/0/5850", ContentFormat: ContentFormatPlainText, Payload: []byte("1")}, w)
	assert.Equal(t, CodeChanged, w.code)

	w = &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodGet, Path: "/3312/0/5850"}, w)
	assert.Equal(t, CodeContent, w.code)
	assert.Equal(t, ContentFormatTLV, w.contentFormat)

	rec, n := UnmarshalTLVRecord(w.payload)
	require.NotNil(t, rec)
	assert.Equal(t, len(w.payload), n)
	v, ok := DecodeTLVBool(rec.Value)
	require.True(t, ok)
	assert.True(t, v)
}

func TestDispatchUnknownObjectIsNotFound(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodGet, Path: "/99/0/1"}, w)
	assert.Equal(t, CodeNotFound, w.code)
}

func TestDispatchMalformedPathIsNotFound(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodGet, Path: "/3/x"}, w)
	assert.Equal(t, CodeNotFound, w.code)
}

func TestDispatchWriteToReadOnlyResourceIsMethodNotAllowed(t *testing.T) {
	defs := []ResourceDef{{ID: 0, Kind: KindInt, Readable: true, Writable: false}}
	object := NewObject(1, "/1", defs, 1)
	object.Instances[0] = Instance{ID: 0, Used: true, Values: make([]ResourceValue, 1)}

	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(object))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodPut, Path: "/1/0/0", ContentFormat: ContentFormatPlainText, Payload: []byte("1")}, w)
	assert.Equal(t, CodeMethodNotAllowed, w.code)
}

func TestDispatchInstanceAutoCreationOnPost(t *testing.T) {
	defs := []ResourceDef{{ID: 0, Kind: KindInt, Readable: true, Writable: true}}
	object := NewObject(1, "/1", defs, 4)

	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(object))

	rec := TLVRecord{Type: TLVResource, ID: 0, Value: EncodeTLVInt(42)}
	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodPost, Path: "/1/7", ContentFormat: ContentFormatTLV, Payload: rec.Marshal()}, w)
	assert.Equal(t, CodeCreated, w.code)

	idx := object.FindInstance(7)
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, int64(42), object.Instances[idx].Values[0].Int)
}

func TestDispatchExecuteResource(t *testing.T) {
	var executed bool
	defs := []ResourceDef{{
		ID: 4, Kind: KindCallback, Executable: true,
		Callback: Callback{Exec: func(ctx *Context, in []byte, out []byte) int {
			executed = true
			return 1
		}},
	}}
	object := NewObject(3, "/3", defs, 1)
	object.Instances[0] = Instance{ID: 0, Used: true, Values: make([]ResourceValue, 1)}

	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(object))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodPost, Path: "/3/0/4"}, w)
	assert.Equal(t, CodeChanged, w.code)
	assert.True(t, executed)
}

func TestDispatchDeleteAlwaysReportsDeleted(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(powerControlObject()))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodDelete, Path: "/3312/0"}, w)
	assert.Equal(t, CodeDeleted, w.code)

	w = &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodDelete, Path: "/99/5"}, w)
	assert.Equal(t, CodeDeleted, w.code)
}

func TestDispatchObjectListLinkFormat(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(powerControlObject()))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodGet, Path: "/3312", HasAccept: true, Accept: ContentFormatLinkFormat}, w)
	assert.Equal(t, CodeContent, w.code)
	assert.Equal(t, "<3312/0>", string(w.payload))
}

func TestDispatchResourceReadDefaultsToTLVRegardlessOfRequestContentFormat(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(powerControlObject()))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodGet, Path: "/3312/0/5852", ContentFormat: ContentFormatPlainText}, w)
	assert.Equal(t, ContentFormatTLV, w.contentFormat)
	rec, n := UnmarshalTLVRecord(w.payload)
	require.NotNil(t, rec)
	assert.Equal(t, len(w.payload), n)
}

func TestDispatchResourceReadWithJSONAcceptFallsBackToPlainText(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(powerControlObject()))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodGet, Path: "/3312/0/5852", HasAccept: true, Accept: ContentFormatJSON}, w)
	assert.Equal(t, CodeContent, w.code)
	assert.Equal(t, ContentFormatPlainText, w.contentFormat)
	assert.Equal(t, "0", string(w.payload))
}

func TestDispatchInstanceAutoCreationRejectsMalformedPayloadWithoutCommittingSlot(t *testing.T) {
	defs := []ResourceDef{{ID: 0, Kind: KindInt, Readable: true, Writable: true}}
	object := NewObject(1, "/1", defs, 1)

	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(object))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodPost, Path: "/1/7", ContentFormat: ContentFormatTLV, Payload: []byte{0xff}}, w)
	assert.Equal(t, CodeNotAcceptable, w.code)
	assert.Equal(t, -1, object.FindInstance(7))
	assert.Equal(t, 0, object.FirstFreeSlot())
}

func TestDispatchObjectListDefaultsToJSONWithoutAccept(t *testing.T) {
	reg := NewRegistry(DefaultMaxObjects)
	require.NoError(t, reg.Register(powerControlObject()))

	w := &fakeResponseWriter{}
	Dispatch(reg, &Request{Method: MethodGet, Path: "/3312"}, w)
	assert.Equal(t, ContentFormatJSON, w.contentFormat)
}
