package platform

import "net"

// SystemNetwork implements engine.Network over the host's network
// interfaces. Go's net package has no analog to the RPL stack's
// TENTATIVE/PREFERRED address states or rpl_get_any_dag() hint, so this
// implementation collapses both: any global-unicast IPv6 address found on
// a non-loopback interface that is up counts as PREFERRED, and DAGRoot
// always reports none known (a host's default route is a standard
// network concern no constrained-device fallback is needed for, so it is
// left to operator configuration instead of guessed at here).
type SystemNetwork struct{}

// NewSystemNetwork returns a Network backed by the host's interfaces.
func NewSystemNetwork() *SystemNetwork { return &SystemNetwork{} }

// HasAccess reports whether any non-loopback interface is up and carries
// an address, the closest portable analog to "a default route is known".
func (n *SystemNetwork) HasAccess() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return true
	}
	return false
}

// DAGRoot always reports that no fallback server is known; see the type
// doc comment.
func (n *SystemNetwork) DAGRoot() (string, bool) { return "", false }

// PreferredAddressSuffix returns the lower 6 bytes of the first global
// unicast IPv6 address found on a non-loopback interface.
func (n *SystemNetwork) PreferredAddressSuffix() ([6]byte, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return [6]byte{}, false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To16()
			if ip == nil || ipNet.IP.To4() != nil || !ip.IsGlobalUnicast() {
				continue
			}
			var suffix [6]byte
			copy(suffix[:], ip[10:16])
			return suffix, true
		}
	}
	return [6]byte{}, false
}

// FakeNetwork implements engine.Network with values tests set directly.
type FakeNetwork struct {
	Access  bool
	DagHost string
	DagOK   bool
	Suffix  [6]byte
	HasAddr bool
}

func (n *FakeNetwork) HasAccess() bool                         { return n.Access }
func (n *FakeNetwork) DAGRoot() (string, bool)                 { return n.DagHost, n.DagOK }
func (n *FakeNetwork) PreferredAddressSuffix() ([6]byte, bool) { return n.Suffix, n.HasAddr }
