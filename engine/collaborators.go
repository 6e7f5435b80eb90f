package engine

import "context"

// Transport is the external collaborator named in §6: it delivers
// requests to Dispatch synchronously and offers a blocking confirmable
// POST for the registration client. Framing, retransmission and
// blockwise transfer are its concern, not the engine's.
type Transport interface {
	// BlockingPost issues a confirmable CoAP POST to addr (host:port, or
	// [ipv6]:port) at the given path, with query appended as the request's
	// URI-Query options, and blocks until an ACK arrives or ctx expires.
	BlockingPost(ctx context.Context, addr, path string, query []string, payload []byte) error
}

// Clock is the monotonic-seconds collaborator named in §6, used by
// IPSO Power Control's on-time accounting.
type Clock interface {
	Seconds() int64
}

// Network is the IPv6/RPL collaborator named in §6: it reports whether a
// default route exists, supplies a DAG-root fallback address for the
// bootstrap/registration servers, and supplies the address suffix used to
// derive an endpoint name.
type Network interface {
	// HasAccess reports whether a default route (or RPL DAG) is currently
	// known; §4.5 step 1 idles the registration task until this is true.
	HasAccess() bool
	// DAGRoot returns a fallback server address to use when the bootstrap
	// or registration server address is not configured. It is passed to
	// Transport.BlockingPost unchanged, so it is in the same host:port (or
	// [ipv6]:port) form.
	DAGRoot() (string, bool)
	// PreferredAddressSuffix returns the lower 6 bytes of a PREFERRED-or-
	// TENTATIVE local IPv6 address, for §4.6's endpoint derivation.
	PreferredAddressSuffix() ([6]byte, bool)
}
