package packet

import (
	"bytes"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	macA = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x01}
	macB = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x02}
)

func buildTCPFrame(t *testing.T, srcIP, dstIP string, srcPort, dstPort uint16) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(srcIP),
		DstIP:    net.ParseIP(dstIP),
	}
	tcp := &layers.TCP{SrcPort: layers.TCPPort(srcPort), DstPort: layers.TCPPort(dstPort), SYN: true}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("Failed to set network layer: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp); err != nil {
		t.Fatalf("Failed to serialize TCP frame: %v", err)
	}
	return buf.Bytes()
}

func buildARPRequest(t *testing.T, srcIP, dstIP string) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       macA,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   macA,
		SourceProtAddress: net.ParseIP(srcIP).To4(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    net.ParseIP(dstIP).To4(),
	}

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, arp); err != nil {
		t.Fatalf("Failed to serialize ARP request: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeTCP(t *testing.T) {
	frame := buildTCPFrame(t, "10.0.0.42", "192.168.101.1", 5000, 80)

	view, err := Decode(frame)
	if err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if !bytes.Equal(view.SrcMAC, macA) || !bytes.Equal(view.DstMAC, macB) {
		t.Errorf("Unexpected MACs: src=%s dst=%s", view.SrcMAC, view.DstMAC)
	}
	if view.IPv4 == nil || view.TCP == nil {
		t.Fatal("Expected IPv4 and TCP layers")
	}
	if view.IPv4.SrcIP.String() != "10.0.0.42" || view.IPv4.DstIP.String() != "192.168.101.1" {
		t.Errorf("Unexpected addresses: %s -> %s", view.IPv4.SrcIP, view.IPv4.DstIP)
	}
	if view.TCP.SrcPort != 5000 || view.TCP.DstPort != 80 {
		t.Errorf("Unexpected ports: %d -> %d", view.TCP.SrcPort, view.TCP.DstPort)
	}
	if view.ARP != nil {
		t.Error("TCP frame should not carry an ARP layer")
	}
}

func TestDecodeARP(t *testing.T) {
	frame := buildARPRequest(t, "192.168.101.5", "192.168.101.42")

	view, err := Decode(frame)
	if err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if view.ARP == nil {
		t.Fatal("Expected ARP layer")
	}
	if view.ARP.Operation != layers.ARPRequest {
		t.Errorf("Unexpected ARP opcode: %d", view.ARP.Operation)
	}
	if view.TCP != nil || view.IPv4 != nil {
		t.Error("ARP frame should not carry IPv4/TCP layers")
	}
}

func TestARPReply(t *testing.T) {
	fakeClient := net.HardwareAddr{0x0e, 0, 0, 0, 0, 0x67}
	fakeServer := net.HardwareAddr{0x0e, 0, 0, 0, 0, 0x66}

	reqView, err := Decode(buildARPRequest(t, "192.168.101.5", "192.168.101.42"))
	if err != nil {
		t.Fatalf("Failed to decode request: %v", err)
	}

	frame, err := ARPReply(reqView.ARP, fakeClient, fakeServer)
	if err != nil {
		t.Fatalf("Failed to build ARP reply: %v", err)
	}

	view, err := Decode(frame)
	if err != nil {
		t.Fatalf("Failed to decode reply: %v", err)
	}
	if view.ARP == nil {
		t.Fatal("Reply is not ARP")
	}
	if view.ARP.Operation != layers.ARPReply {
		t.Errorf("Unexpected opcode: %d", view.ARP.Operation)
	}
	if !bytes.Equal(view.SrcMAC, fakeClient) || !bytes.Equal(view.DstMAC, fakeServer) {
		t.Errorf("Unexpected reply MACs: src=%s dst=%s", view.SrcMAC, view.DstMAC)
	}
	// IPs must come back swapped relative to the request.
	if got := net.IP(view.ARP.SourceProtAddress).String(); got != "192.168.101.42" {
		t.Errorf("Reply sender IP = %s, want 192.168.101.42", got)
	}
	if got := net.IP(view.ARP.DstProtAddress).String(); got != "192.168.101.5" {
		t.Errorf("Reply target IP = %s, want 192.168.101.5", got)
	}
}
