package controller

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"NetDecoy/internal/config"
	"NetDecoy/internal/model"
	"NetDecoy/internal/ofswitch"
	"NetDecoy/internal/pipeline"
)

type fakeSession struct {
	deletes int
	rules   []ofswitch.Rule
	sends   []uint32
}

func (f *fakeSession) DeleteAllRules() error {
	f.deletes++
	return nil
}

func (f *fakeSession) InsertRule(r ofswitch.Rule) error {
	f.rules = append(f.rules, r)
	return nil
}

func (f *fakeSession) SendPacket(port uint32, frame []byte) error {
	f.sends = append(f.sends, port)
	return nil
}

type recordingNotifier struct {
	events []*model.FlowEvent
}

func (r *recordingNotifier) Notify(ev *model.FlowEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) Close() {}

func testStatic(t *testing.T) *config.Static {
	t.Helper()
	st, err := config.Defaults().Switch.Parse()
	if err != nil {
		t.Fatalf("Failed to parse default config: %v", err)
	}
	return st
}

func tcpSYNFrame(t *testing.T, srcIP, dstIP string, srcPort, dstPort uint16) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
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
		t.Fatalf("Failed to serialize frame: %v", err)
	}
	return buf.Bytes()
}

func arpRequestFrame(t *testing.T, srcIP, dstIP string) []byte {
	t.Helper()
	src := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0, 0, 3}
	eth := &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   src,
		SourceProtAddress: net.ParseIP(srcIP).To4(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    net.ParseIP(dstIP).To4(),
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, arp); err != nil {
		t.Fatalf("Failed to serialize ARP frame: %v", err)
	}
	return buf.Bytes()
}

func TestEndToEndScenario(t *testing.T) {
	cfg := testStatic(t)
	stats := model.NewStats()
	notifier := &recordingNotifier{}
	ctrl := New(cfg, stats, notifier)
	s := &fakeSession{}

	// Switch connects: one wipe, 3 default-deny + 6 dispatch rules.
	if err := pipeline.Bootstrap(s, cfg); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if s.deletes != 1 || len(s.rules) != 9 {
		t.Fatalf("Bootstrap installed %d rules after %d deletes, want 9 after 1", len(s.rules), s.deletes)
	}

	// First SYN from the coprocessor: exactly two learned rules.
	syn := tcpSYNFrame(t, "10.0.0.42", "192.168.101.1", 5000, 80)
	ctrl.HandlePacketIn(s, cfg.CoproPort, syn)
	if len(s.rules) != 11 {
		t.Fatalf("Expected 2 learned rules on top of bootstrap, got %d total", len(s.rules))
	}
	forward, reverse := s.rules[9], s.rules[10]
	if forward.Table != pipeline.TableInbound || reverse.Table != pipeline.TableOutbound {
		t.Errorf("Learned rules landed in tables %d/%d", forward.Table, reverse.Table)
	}
	if forward.IdleTimeout != cfg.IdleTimeout || reverse.IdleTimeout != cfg.IdleTimeout {
		t.Error("Learned rules must carry the configured idle timeout")
	}
	if stats.FlowsLearned.Load() != 1 {
		t.Errorf("FlowsLearned = %d, want 1", stats.FlowsLearned.Load())
	}
	if len(notifier.events) != 1 || notifier.events[0].NATSrcIP != "192.168.101.42" {
		t.Errorf("Unexpected notification: %+v", notifier.events)
	}

	// A duplicate SYN before install completion is a benign race: the
	// controller reissues the identical pair.
	ctrl.HandlePacketIn(s, cfg.CoproPort, syn)
	if len(s.rules) != 13 {
		t.Fatalf("Duplicate SYN should reinstall the pair, got %d total rules", len(s.rules))
	}

	// ARP request from the fake segment: one reply, no rules.
	ctrl.HandlePacketIn(s, cfg.FakePort, arpRequestFrame(t, "192.168.101.5", "192.168.101.42"))
	if len(s.sends) != 1 || s.sends[0] != cfg.FakePort {
		t.Errorf("Expected one reply out the fake port, got %v", s.sends)
	}
	if len(s.rules) != 13 {
		t.Error("ARP handling must not install rules")
	}
	if stats.ARPReplies.Load() != 1 {
		t.Errorf("ARPReplies = %d, want 1", stats.ARPReplies.Load())
	}
}

func TestNonMatchingTrafficIsolation(t *testing.T) {
	cfg := testStatic(t)
	ctrl := New(cfg, model.NewStats())
	s := &fakeSession{}

	// ARP on the coprocessor port: not IPv4/TCP, no commands.
	ctrl.HandlePacketIn(s, cfg.CoproPort, arpRequestFrame(t, "10.0.0.1", "10.0.0.2"))
	// TCP on the fake port: not ARP, no commands.
	ctrl.HandlePacketIn(s, cfg.FakePort, tcpSYNFrame(t, "192.168.101.1", "192.168.101.42", 80, 5000))
	// Anything on an unknown port: no commands.
	ctrl.HandlePacketIn(s, 99, tcpSYNFrame(t, "10.0.0.42", "192.168.101.1", 5000, 80))

	if len(s.rules) != 0 || len(s.sends) != 0 || s.deletes != 0 {
		t.Errorf("Expected zero commands, got %d rules %d sends %d deletes", len(s.rules), len(s.sends), s.deletes)
	}
}

func TestGarbageFrameIgnored(t *testing.T) {
	cfg := testStatic(t)
	stats := model.NewStats()
	ctrl := New(cfg, stats)
	s := &fakeSession{}

	ctrl.HandlePacketIn(s, cfg.CoproPort, []byte{0x01, 0x02})
	if len(s.rules) != 0 || len(s.sends) != 0 {
		t.Error("Truncated frame must produce no commands")
	}
}
