package nat

import "net"

// Map relocates a real IPv4 host address into the fake subnet:
// the host bits (under the fake network's hostmask) are preserved and the
// network bits are replaced with the fake network address. The embedding
// is deterministic and stateless; reversing it only needs the fake
// network's prefix. If the real segment is wider than the fake one,
// distinct real hosts can collide on the same mapped address. That is a
// documented property of the scheme, not detected here.
//
// Returns nil if real is not an IPv4 address.
func Map(real net.IP, fakeNet *net.IPNet) net.IP {
	real4 := real.To4()
	network := fakeNet.IP.To4()
	if real4 == nil || network == nil {
		return nil
	}
	mask := net.IP(fakeNet.Mask).To4()
	if mask == nil {
		return nil
	}

	mapped := make(net.IP, net.IPv4len)
	for i := 0; i < net.IPv4len; i++ {
		mapped[i] = (real4[i] &^ mask[i]) | network[i]
	}
	return mapped
}
