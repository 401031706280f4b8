package proxy

import (
	"fmt"
	"time"

	"github.com/contiv/libOpenflow/openflow13"

	"NetDecoy/internal/config"
	"NetDecoy/internal/model"
	"NetDecoy/internal/nat"
	"NetDecoy/internal/ofswitch"
	"NetDecoy/internal/packet"
	"NetDecoy/internal/pipeline"
)

// FlowLearner reacts to the first TCP packet of each flow arriving from
// the coprocessor segment. It computes the NAT mapping and installs one
// forward and one reverse translation rule, both with the configured
// idle timeout so unused flows expire on the switch itself. The learner
// keeps no record of installed flows: a burst of first packets produces
// duplicate installs, which the switch resolves by replacing the
// identical match.
type FlowLearner struct {
	cfg *config.Static
}

// NewFlowLearner creates a learner bound to the static configuration.
func NewFlowLearner(cfg *config.Static) *FlowLearner {
	return &FlowLearner{cfg: cfg}
}

// Handle learns one frame from the coprocessor port. Frames that are not
// IPv4+TCP are silently skipped. On success it returns the event
// describing the learned flow; (nil, nil) means the frame was ignored.
func (l *FlowLearner) Handle(s ofswitch.Session, view *packet.View) (*model.FlowEvent, error) {
	if view.IPv4 == nil || view.TCP == nil {
		return nil, nil
	}

	natSrc := nat.Map(view.IPv4.SrcIP, l.cfg.FakeNet)
	if natSrc == nil {
		return nil, fmt.Errorf("cannot map source address %s", view.IPv4.SrcIP)
	}
	srcPort := uint16(view.TCP.SrcPort)
	dstPort := uint16(view.TCP.DstPort)

	// Forward: rewrite the flow into the fake subnet and deliver it to
	// the fake services port.
	forward := ofswitch.Rule{
		Table:       pipeline.TableInbound,
		Priority:    pipeline.PriorityLearned,
		IdleTimeout: l.cfg.IdleTimeout,
		Match: ofswitch.NewMatch(
			openflow13.NewEthTypeField(ofswitch.EtherTypeIPv4),
			openflow13.NewEthSrcField(view.SrcMAC, nil),
			openflow13.NewIpv4DstField(view.IPv4.DstIP, nil),
			openflow13.NewIpProtoField(ofswitch.IPProtoTCP),
			openflow13.NewTcpDstField(dstPort),
			openflow13.NewTcpSrcField(srcPort),
		),
		Instructions: []openflow13.Instruction{ofswitch.ApplyActions(
			openflow13.NewActionSetField(*openflow13.NewEthSrcField(l.cfg.FakeClientMAC, nil)),
			openflow13.NewActionSetField(*openflow13.NewEthDstField(l.cfg.FakeServerMAC, nil)),
			openflow13.NewActionSetField(*openflow13.NewIpv4SrcField(natSrc, nil)),
			openflow13.NewActionSetField(*openflow13.NewIpv4DstField(l.cfg.FakeIP, nil)),
			openflow13.NewActionOutput(l.cfg.FakePort),
		)},
	}

	// Reverse: restore the original addresses, re-tag with the
	// coprocessed VLAN and deliver back out the coprocessor port. TCP
	// ports are never rewritten by this NAT, so the observed ports are
	// the rewritten ones too.
	reverse := ofswitch.Rule{
		Table:       pipeline.TableOutbound,
		Priority:    pipeline.PriorityLearned,
		IdleTimeout: l.cfg.IdleTimeout,
		Match: ofswitch.NewMatch(
			openflow13.NewEthTypeField(ofswitch.EtherTypeIPv4),
			openflow13.NewIpv4DstField(natSrc, nil),
			openflow13.NewIpProtoField(ofswitch.IPProtoTCP),
			openflow13.NewTcpSrcField(dstPort),
			openflow13.NewTcpDstField(srcPort),
		),
		Instructions: []openflow13.Instruction{ofswitch.ApplyActions(
			openflow13.NewActionSetField(*openflow13.NewEthSrcField(view.DstMAC, nil)),
			openflow13.NewActionSetField(*openflow13.NewEthDstField(view.SrcMAC, nil)),
			openflow13.NewActionSetField(*openflow13.NewIpv4SrcField(view.IPv4.DstIP, nil)),
			openflow13.NewActionSetField(*openflow13.NewIpv4DstField(view.IPv4.SrcIP, nil)),
			openflow13.NewActionPushVlan(ofswitch.EtherTypeVLAN),
			openflow13.NewActionSetField(*openflow13.NewVlanIdField(l.cfg.VLAN, nil)),
			openflow13.NewActionOutput(l.cfg.CoproPort),
		)},
	}

	if err := s.InsertRule(forward); err != nil {
		return nil, fmt.Errorf("failed to install forward rule: %w", err)
	}
	if err := s.InsertRule(reverse); err != nil {
		return nil, fmt.Errorf("failed to install reverse rule: %w", err)
	}

	return &model.FlowEvent{
		Timestamp: time.Now(),
		SrcMAC:    view.SrcMAC.String(),
		DstMAC:    view.DstMAC.String(),
		SrcIP:     view.IPv4.SrcIP.String(),
		DstIP:     view.IPv4.DstIP.String(),
		NATSrcIP:  natSrc.String(),
		SrcPort:   srcPort,
		DstPort:   dstPort,
	}, nil
}
