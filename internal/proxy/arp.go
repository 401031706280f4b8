package proxy

import (
	"github.com/google/gopacket/layers"

	"NetDecoy/internal/config"
	"NetDecoy/internal/ofswitch"
	"NetDecoy/internal/packet"
)

// ARPProxy answers ARP requests arriving from the fake segment on behalf
// of the coprocessed hosts, which do not exist there. Every mapped
// address resolves to the single fake-client MAC, so the fake segment
// never learns real host identities. The real segment is never touched.
type ARPProxy struct {
	cfg *config.Static
}

// NewARPProxy creates an ARP proxy bound to the static configuration.
func NewARPProxy(cfg *config.Static) *ARPProxy {
	return &ARPProxy{cfg: cfg}
}

// Handle answers one frame from the fake port. Non-ARP frames and ARP
// messages that are not requests are silently skipped. Returns whether a
// reply was sent.
func (p *ARPProxy) Handle(s ofswitch.Session, view *packet.View) (bool, error) {
	if view.ARP == nil || view.ARP.Operation != layers.ARPRequest {
		return false, nil
	}

	frame, err := packet.ARPReply(view.ARP, p.cfg.FakeClientMAC, p.cfg.FakeServerMAC)
	if err != nil {
		return false, err
	}
	if err := s.SendPacket(p.cfg.FakePort, frame); err != nil {
		return false, err
	}
	return true, nil
}
