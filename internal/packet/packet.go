package packet

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// View is the decoded form of one packet-in payload. Layer pointers are
// nil when the corresponding header is absent; callers decide which
// layers they require and silently skip packets missing them.
type View struct {
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
	EtherType layers.EthernetType
	VLAN      *layers.Dot1Q
	ARP       *layers.ARP
	IPv4      *layers.IPv4
	TCP       *layers.TCP
}

// Decode uses gopacket to parse a raw Ethernet frame into a View.
func Decode(frame []byte) (*View, error) {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)

	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, fmt.Errorf("not an Ethernet frame")
	}
	eth := ethLayer.(*layers.Ethernet)

	view := &View{
		SrcMAC:    eth.SrcMAC,
		DstMAC:    eth.DstMAC,
		EtherType: eth.EthernetType,
	}

	if l := pkt.Layer(layers.LayerTypeDot1Q); l != nil {
		view.VLAN = l.(*layers.Dot1Q)
	}
	if l := pkt.Layer(layers.LayerTypeARP); l != nil {
		view.ARP = l.(*layers.ARP)
	}
	if l := pkt.Layer(layers.LayerTypeIPv4); l != nil {
		view.IPv4 = l.(*layers.IPv4)
	}
	if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
		view.TCP = l.(*layers.TCP)
	}
	return view, nil
}

// ARPReply builds the frame answering req on behalf of the requested
// address: the sender becomes srcMAC with the request's target IP, the
// target becomes dstMAC with the request's sender IP.
func ARPReply(req *layers.ARP, srcMAC, dstMAC net.HardwareAddr) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeARP,
	}
	reply := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPReply,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: req.DstProtAddress,
		DstHwAddress:      dstMAC,
		DstProtAddress:    req.SourceProtAddress,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, reply); err != nil {
		return nil, fmt.Errorf("failed to serialize ARP reply: %w", err)
	}
	return buf.Bytes(), nil
}
