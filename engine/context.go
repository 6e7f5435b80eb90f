package engine

// Format identifies the content-format a request or response body is
// encoded with, restricted to the set this engine actually speaks.
type Format int

const (
	FormatPlainText Format = iota
	FormatTLV
	FormatLinkFormat
	FormatJSON
)

// CoAP Content-Format registry values referenced by §6.
const (
	ContentFormatPlainText  = 0
	ContentFormatTLV        = 11542
	ContentFormatLinkFormat = 40
	ContentFormatJSON       = 50
)

// Context is the per-request, stack-scoped result of parsing a URI path:
// the three decimal ids present in the path (when present), the resolved
// slot index once an instance has been matched, and the resource
// definition index once a resource has been matched. Depth counts how
// many of ObjectID/InstanceID/ResourceID were actually present in the
// path; a negative depth signals a parse failure.
type Context struct {
	ObjectID    uint16
	InstanceID  uint16
	ResourceID  uint16
	Depth       int
	InstanceIdx int // set once the dispatcher resolves an instance; -1 until then
	ResourceIdx int // set once the dispatcher resolves a resource; -1 until then
	Reader      Format
	Writer      Format
}

// ErrParseDepth is the reserved negative depth returned by ParseContext on
// a malformed path, matching parse_next's error return of -4 in the
// engine this follows (collapsed here to one sentinel since callers only
// ever test depth < 0).
const ErrParseDepth = -1

// ParseContext parses a URI path of the form "/O", "/O/I" or "/O/I/R"
// (the leading slash is optional) into a Context. Up to three decimal
// segments are read; a fourth segment, or any non-digit/non-slash byte, is
// a parse failure reported as Depth == ErrParseDepth. The reader/writer
// default to plain-text/TLV per §4.3; the dispatcher overrides them as the
// request's content-format and method require.
func ParseContext(path string) Context {
	ctx := Context{InstanceIdx: -1, ResourceIdx: -1, Reader: FormatPlainText, Writer: FormatTLV}

	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if len(path) == 0 {
		return ctx
	}

	ids := [3]uint16{}
	depth := 0
	var value uint16
	sawDigit := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c >= '0' && c <= '9':
			value = value*10 + uint16(c-'0')
			sawDigit = true
		case c == '/':
			if depth >= 3 || !sawDigit {
				ctx.Depth = ErrParseDepth
				return ctx
			}
			ids[depth] = value
			depth++
			value = 0
			sawDigit = false
		default:
			ctx.Depth = ErrParseDepth
			return ctx
		}
	}
	// A trailing slash with nothing after it (e.g. "3/") is not an error:
	// the segment before it was already recorded when '/' was consumed.
	if sawDigit {
		if depth >= 3 {
			ctx.Depth = ErrParseDepth
			return ctx
		}
		ids[depth] = value
		depth++
	}

	ctx.ObjectID = ids[0]
	ctx.InstanceID = ids[1]
	ctx.ResourceID = ids[2]
	ctx.Depth = depth
	return ctx
}
