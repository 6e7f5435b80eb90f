package engine

import (
	"fmt"
	"strings"
)

// Method is the CoAP request method a Request carries. Only the four
// methods LWM2M actually uses are represented.
type Method int

const (
	MethodGet Method = iota
	MethodPut
	MethodPost
	MethodDelete
)

// Code is a CoAP response code, using the RFC7252 numeric values directly
// so a transport can cast straight to its own code type without a lookup
// table.
type Code int

const (
	CodeCreated             Code = 65  // 2.01
	CodeDeleted             Code = 66  // 2.02
	CodeChanged             Code = 68  // 2.04
	CodeContent             Code = 69  // 2.05
	CodeBadRequest          Code = 128 // 4.00
	CodeNotFound            Code = 132 // 4.04
	CodeMethodNotAllowed    Code = 133 // 4.05
	CodeNotAcceptable       Code = 134 // 4.06
	CodeInternalServerError Code = 160 // 5.00
)

// Request is the engine-facing view of an inbound CoAP request: enough to
// dispatch on, independent of the wire transport that produced it.
type Request struct {
	Method        Method
	Path          string
	ContentFormat int  // format of Payload; ContentFormatPlainText if the request carried no Content-Format option
	HasAccept     bool // whether Accept is meaningful; false leaves the response format at its TLV default
	Accept        int  // requested response format, meaningful only when HasAccept is set
	Payload       []byte
}

// ResponseWriter is how Dispatch hands a result back to the transport that
// owns the actual CoAP message.
type ResponseWriter interface {
	SetCode(Code)
	SetContentFormat(int)
	Write(payload []byte)
}

// Dispatch resolves a Request against reg and writes the result to w. It
// is the sole entry point Server registration, bootstrap writes and
// direct LWM2M reads/writes/executes all funnel through; Observe/Notify
// are not part of this surface.
func Dispatch(reg *Registry, req *Request, w ResponseWriter) {
	ctx := ParseContext(req.Path)
	if ctx.Depth <= 0 {
		w.SetCode(CodeNotFound)
		return
	}

	// Reader follows the request's own Content-Format, since that is the
	// format the payload being written is actually encoded in. Writer
	// defaults to TLV per §4.3 and is only overridden by an explicit
	// Accept option: a GET carries no Content-Format at all, so reading
	// the response format from req.ContentFormat would silently downgrade
	// every numeric read to plain text.
	switch req.ContentFormat {
	case ContentFormatTLV:
		ctx.Reader = FormatTLV
	case ContentFormatLinkFormat:
		ctx.Reader = FormatLinkFormat
	case ContentFormatJSON:
		ctx.Reader = FormatJSON
	default:
		ctx.Reader = FormatPlainText
	}
	ctx.Writer = FormatTLV
	if req.HasAccept {
		switch req.Accept {
		case ContentFormatPlainText:
			ctx.Writer = FormatPlainText
		case ContentFormatLinkFormat:
			ctx.Writer = FormatLinkFormat
		case ContentFormatJSON:
			ctx.Writer = FormatJSON
		}
	}

	object := reg.Get(ctx.ObjectID)
	if req.Method == MethodDelete {
		dispatchDelete(object, ctx, w)
		return
	}
	if object == nil {
		w.SetCode(CodeNotFound)
		return
	}

	if ctx.Depth == 1 {
		dispatchObject(object, ctx, req, w)
		return
	}

	instanceIdx := object.FindInstance(ctx.InstanceID)
	if instanceIdx < 0 {
		if (req.Method == MethodPut || req.Method == MethodPost) && ctx.Depth == 2 {
			var err error
			instanceIdx, err = createInstance(object, ctx.InstanceID, req.Payload)
			if err != nil {
				w.SetCode(CodeNotAcceptable)
				return
			}
			w.SetCode(CodeCreated)
			return
		}
		w.SetCode(CodeNotFound)
		return
	}
	ctx.InstanceIdx = instanceIdx

	if ctx.Depth == 2 {
		dispatchInstance(object, ctx, req, w)
		return
	}

	dispatchResource(object, ctx, req, w)
}

// dispatchDelete always answers 2.02 Deleted, matching the handler this
// follows: a missing object or instance is not treated as an error here,
// only as nothing further to do.
func dispatchDelete(object *Object, ctx Context, w ResponseWriter) {
	if object != nil && ctx.Depth >= 2 {
		if idx := object.FindInstance(ctx.InstanceID); idx >= 0 {
			object.Instances[idx].Used = false
			if object.OnInstanceDeleted != nil {
				object.OnInstanceDeleted(idx)
			}
		}
	}
	w.SetCode(CodeDeleted)
}

// dispatchObject handles a request addressed at the object itself
// (depth 1). Only GET is meaningful here: it lists the used instances.
func dispatchObject(object *Object, ctx Context, req *Request, w ResponseWriter) {
	if req.Method != MethodGet {
		w.SetCode(CodeMethodNotAllowed)
		return
	}
	var ids []uint16
	for _, inst := range object.Instances {
		if inst.Used {
			ids = append(ids, inst.ID)
		}
	}
	w.SetCode(CodeContent)
	if ctx.Writer == FormatLinkFormat {
		w.SetContentFormat(ContentFormatLinkFormat)
		w.Write([]byte(linkFormatObject(object.ID, ids)))
		return
	}
	w.SetContentFormat(ContentFormatJSON)
	w.Write([]byte(jsonInstanceList(object.ID, ids)))
}

// dispatchInstance handles a request addressed at one instance
// (depth 2): GET snapshots every resource of the instance, in either
// link-format or the engine's compact JSON-ish form; any other method
// falls through to 4.05, since instance creation is handled by Dispatch
// before an instance has been resolved.
func dispatchInstance(object *Object, ctx Context, req *Request, w ResponseWriter) {
	if req.Method != MethodGet {
		w.SetCode(CodeMethodNotAllowed)
		return
	}
	inst := &object.Instances[ctx.InstanceIdx]
	w.SetCode(CodeContent)

	if ctx.Writer == FormatLinkFormat {
		var paths []string
		for _, def := range object.Definitions {
			if def.Readable {
				paths = append(paths, fmt.Sprintf("%d/%d/%d", object.ID, inst.ID, def.ID))
			}
		}
		w.SetContentFormat(ContentFormatLinkFormat)
		w.Write([]byte(linkFormatResources(paths)))
		return
	}

	var buf []byte
	for i, def := range object.Definitions {
		if !def.Readable {
			continue
		}
		rendered, ok := readResourceJSON(&def, &inst.Values[i])
		if !ok {
			continue
		}
		buf = append(buf, rendered...)
		buf = append(buf, ',')
	}
	w.SetContentFormat(ContentFormatJSON)
	w.Write([]byte(jsonWrap(buf)))
}

// dispatchResource handles a request addressed at a single resource
// (depth 3): the read, write and execute operations of §4.4.
func dispatchResource(object *Object, ctx Context, req *Request, w ResponseWriter) {
	def := object.Definition(ctx.ResourceID)
	if def == nil {
		w.SetCode(CodeNotFound)
		return
	}
	defIdx := definitionIndex(object, ctx.ResourceID)
	inst := &object.Instances[ctx.InstanceIdx]

	switch req.Method {
	case MethodGet:
		dispatchResourceRead(def, &inst.Values[defIdx], &ctx, w)
	case MethodPut:
		dispatchResourceWrite(def, &inst.Values[defIdx], &ctx, req, w)
	case MethodPost:
		dispatchResourceExecute(def, &ctx, req, w)
	default:
		w.SetCode(CodeMethodNotAllowed)
	}
}

func dispatchResourceRead(def *ResourceDef, value *ResourceValue, ctx *Context, w ResponseWriter) {
	if !def.Readable && def.Kind != KindCallback {
		w.SetCode(CodeMethodNotAllowed)
		return
	}
	if def.Kind == KindCallback {
		if def.Callback.Read == nil {
			w.SetCode(CodeMethodNotAllowed)
			return
		}
		out := make([]byte, 256)
		n := def.Callback.Read(ctx, nil, out)
		if n == 0 {
			w.SetCode(CodeInternalServerError)
			return
		}
		w.SetCode(CodeContent)
		w.SetContentFormat(contentFormatOf(ctx.Writer))
		w.Write(out[:n])
		return
	}

	payload, format, ok := encodeResource(ctx.Writer, def, value)
	if !ok {
		w.SetCode(CodeInternalServerError)
		return
	}
	// The Content-Format option must describe what encodeResource actually
	// produced, not the requested ctx.Writer: JSON and link-format aren't
	// meaningful for a single resource value and fall back to plain text.
	w.SetCode(CodeContent)
	w.SetContentFormat(contentFormatOf(format))
	w.Write(payload)
}

func dispatchResourceWrite(def *ResourceDef, value *ResourceValue, ctx *Context, req *Request, w ResponseWriter) {
	if def.Kind == KindCallback {
		if def.Callback.Write == nil {
			w.SetCode(CodeMethodNotAllowed)
			return
		}
		if def.Callback.Write(ctx, req.Payload, nil) == 0 {
			w.SetCode(CodeNotAcceptable)
			return
		}
		w.SetCode(CodeChanged)
		return
	}
	if !def.Writable {
		w.SetCode(CodeMethodNotAllowed)
		return
	}
	if !decodeResource(ctx.Reader, req.Payload, def, value) {
		w.SetCode(CodeNotAcceptable)
		return
	}
	w.SetCode(CodeChanged)
}

func dispatchResourceExecute(def *ResourceDef, ctx *Context, req *Request, w ResponseWriter) {
	if def.Kind != KindCallback || def.Callback.Exec == nil || !def.Executable {
		w.SetCode(CodeMethodNotAllowed)
		return
	}
	if def.Callback.Exec(ctx, req.Payload, nil) == 0 {
		w.SetCode(CodeInternalServerError)
		return
	}
	w.SetCode(CodeChanged)
}

// createInstance places a new instance with the given id at the lowest
// free slot and, when payload is non-empty, writes each TLV resource
// record it contains, skipping ids this object does not declare -
// matching the auto-creation write loop of the handler this follows.
func createInstance(object *Object, id uint16, payload []byte) (int, error) {
	slot := object.FirstFreeSlot()
	if slot < 0 {
		return -1, fmt.Errorf("engine: object %d has no free instance slots", object.ID)
	}
	values := make([]ResourceValue, len(object.Definitions))

	remaining := payload
	for len(remaining) > 0 {
		rec, n := UnmarshalTLVRecord(remaining)
		if rec == nil {
			return -1, fmt.Errorf("engine: malformed TLV in instance payload")
		}
		record := remaining[:n]
		remaining = remaining[n:]
		defIdx := definitionIndex(object, rec.ID)
		if defIdx < 0 {
			continue
		}
		def := &object.Definitions[defIdx]
		if def.Kind == KindCallback || !def.Writable {
			continue
		}
		decodeResource(FormatTLV, record, def, &values[defIdx])
	}
	// Only commit the slot once the whole payload has parsed cleanly, so a
	// malformed record never leaves a phantom Used instance behind.
	object.Instances[slot] = Instance{ID: id, Used: true, Values: values}
	if object.OnInstanceCreated != nil {
		object.OnInstanceCreated(slot)
	}
	return slot, nil
}

func definitionIndex(object *Object, id uint16) int {
	for i := range object.Definitions {
		if object.Definitions[i].ID == id {
			return i
		}
	}
	return -1
}

func contentFormatOf(f Format) int {
	switch f {
	case FormatTLV:
		return ContentFormatTLV
	case FormatLinkFormat:
		return ContentFormatLinkFormat
	case FormatJSON:
		return ContentFormatJSON
	default:
		return ContentFormatPlainText
	}
}

// encodeResource renders a Value-kind resource in the requested wire
// format. TLV is used for numeric and boolean values when requested;
// strings, and every other requested format, render the value as plain
// text, since neither JSON nor link-format carries meaning for a single
// resource value on its own. It returns the Format actually used, which
// the caller must label the response with instead of trusting the
// requested one blindly.
func encodeResource(f Format, def *ResourceDef, value *ResourceValue) ([]byte, Format, bool) {
	if f == FormatTLV && def.Kind != KindString {
		var raw []byte
		switch def.Kind {
		case KindInt:
			raw = EncodeTLVInt(value.Int)
		case KindBoolean:
			raw = EncodeTLVBool(value.Bool)
		case KindFloatFix:
			raw = EncodeFloatFix(int64(value.Fixed), 10)
		case KindString:
			raw = []byte(value.Str)
		default:
			return nil, FormatTLV, false
		}
		rec := TLVRecord{Type: TLVResource, ID: def.ID, Value: raw}
		return rec.Marshal(), FormatTLV, true
	}

	switch def.Kind {
	case KindInt:
		return WriteTextInt(value.Int), FormatPlainText, true
	case KindBoolean:
		return WriteTextBool(value.Bool), FormatPlainText, true
	case KindFloatFix:
		return WriteTextFloat(float64(value.Fixed) / (1 << 10)), FormatPlainText, true
	case KindString:
		return WriteTextString(value.Str), FormatPlainText, true
	default:
		return nil, FormatPlainText, false
	}
}

// decodeResource is the inverse of encodeResource, used by both direct
// resource writes and the instance-creation payload loop.
func decodeResource(f Format, payload []byte, def *ResourceDef, value *ResourceValue) bool {
	raw := payload
	if f == FormatTLV {
		rec, n := UnmarshalTLVRecord(payload)
		if rec == nil || n == 0 {
			return false
		}
		raw = rec.Value
	}

	switch def.Kind {
	case KindInt:
		if f == FormatTLV {
			v, ok := DecodeTLVInt(raw)
			if !ok {
				return false
			}
			value.Int = v
			return true
		}
		n, v := ReadTextInt(raw)
		if n == 0 {
			return false
		}
		value.Int = v
		return true
	case KindBoolean:
		if f == FormatTLV {
			v, ok := DecodeTLVBool(raw)
			if !ok {
				return false
			}
			value.Bool = v
			return true
		}
		n, v := ReadTextBool(raw)
		if n == 0 {
			return false
		}
		value.Bool = v
		return true
	case KindFloatFix:
		if f == FormatTLV {
			v, ok := DecodeFloatFix(raw, 10)
			if !ok {
				return false
			}
			value.Fixed = int32(v)
			return true
		}
		n, v := ReadTextFloat(raw)
		if n == 0 {
			return false
		}
		value.Fixed = int32(v * (1 << 10))
		return true
	case KindString:
		value.Str = string(raw)
		return true
	default:
		return false
	}
}

func readResourceJSON(def *ResourceDef, value *ResourceValue) (string, bool) {
	switch def.Kind {
	case KindInt:
		return fmt.Sprintf(`{"n":"%d","v":%d}`, def.ID, value.Int), true
	case KindBoolean:
		return fmt.Sprintf(`{"n":"%d","v":%t}`, def.ID, value.Bool), true
	case KindFloatFix:
		return fmt.Sprintf(`{"n":"%d","v":%g}`, def.ID, float64(value.Fixed)/(1<<10)), true
	case KindString:
		return fmt.Sprintf(`{"n":"%d","vs":"%s"}`, def.ID, value.Str), true
	default:
		return "", false
	}
}

func jsonWrap(entries []byte) string {
	return `{"e":[` + strings.TrimSuffix(string(entries), ",") + `]}`
}

func linkFormatObject(objectID uint16, instanceIDs []uint16) string {
	var b strings.Builder
	for i, id := range instanceIDs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "<%d/%d>", objectID, id)
	}
	return b.String()
}

func jsonInstanceList(objectID uint16, instanceIDs []uint16) string {
	var b strings.Builder
	b.WriteString(`{"e":[`)
	for i, id := range instanceIDs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"n":"%d/%d"}`, objectID, id)
	}
	b.WriteString(`]}`)
	return b.String()
}

func linkFormatResources(paths []string) string {
	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "<%s>", p)
	}
	return b.String()
}
