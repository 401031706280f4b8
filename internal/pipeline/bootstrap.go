package pipeline

import (
	"fmt"

	"github.com/contiv/libOpenflow/openflow13"

	"NetDecoy/internal/config"
	"NetDecoy/internal/ofswitch"
)

// The three-table pipeline. Table 0 classifies by ingress port and
// ethertype, table 1 translates coprocessor-to-fake traffic, table 2
// translates the reverse direction and serves ARP on the fake side.
const (
	TableClassify uint8 = 0
	TableInbound  uint8 = 1
	TableOutbound uint8 = 2
)

// Rule priorities. Learned translation rules sit above the dispatch
// rules so that once installed, flow traffic never reaches the
// controller again.
const (
	PriorityDefault  uint16 = 0
	PriorityDispatch uint16 = 1
	PriorityLearned  uint16 = 2
)

// Bootstrap wipes all switch state and installs the static pipeline
// skeleton: a default-deny rule per table plus the dispatch rules that
// punt first packets to the controller. Safe to run at any time; it
// always reconverges to the same switch state.
func Bootstrap(s ofswitch.Session, cfg *config.Static) error {
	if err := s.DeleteAllRules(); err != nil {
		return fmt.Errorf("failed to clear flow tables: %w", err)
	}

	// Default deny: no instructions means matching packets are dropped,
	// not punted to the controller.
	for _, table := range []uint8{TableClassify, TableInbound, TableOutbound} {
		err := s.InsertRule(ofswitch.Rule{Table: table, Priority: PriorityDefault})
		if err != nil {
			return fmt.Errorf("failed to install default deny in table %d: %w", table, err)
		}
	}

	dispatch := []ofswitch.Rule{
		// First TCP packet of each inbound flow goes to the flow learner.
		{
			Table:    TableInbound,
			Priority: PriorityDispatch,
			Match: ofswitch.NewMatch(
				openflow13.NewEthTypeField(ofswitch.EtherTypeIPv4),
				openflow13.NewIpProtoField(ofswitch.IPProtoTCP),
			),
			Instructions: []openflow13.Instruction{ofswitch.OutputController()},
		},
		// ARP from the fake segment goes to the ARP proxy.
		{
			Table:    TableOutbound,
			Priority: PriorityDispatch,
			Match: ofswitch.NewMatch(
				openflow13.NewEthTypeField(ofswitch.EtherTypeARP),
			),
			Instructions: []openflow13.Instruction{ofswitch.OutputController()},
		},
		// Tagged packets from the coprocessor are stripped before
		// classification in the inbound table.
		{
			Table:    TableClassify,
			Priority: PriorityDispatch,
			Match: ofswitch.NewMatch(
				ofswitch.MatchVLANPresent(),
				openflow13.NewInPortField(cfg.CoproPort),
			),
			Instructions: []openflow13.Instruction{
				ofswitch.ApplyActions(openflow13.NewActionPopVlan()),
				ofswitch.GotoTable(TableInbound),
			},
		},
		{
			Table:    TableClassify,
			Priority: PriorityDispatch,
			Match: ofswitch.NewMatch(
				openflow13.NewEthTypeField(ofswitch.EtherTypeIPv4),
				openflow13.NewInPortField(cfg.CoproPort),
			),
			Instructions: []openflow13.Instruction{ofswitch.GotoTable(TableInbound)},
		},
		{
			Table:    TableClassify,
			Priority: PriorityDispatch,
			Match: ofswitch.NewMatch(
				openflow13.NewEthTypeField(ofswitch.EtherTypeIPv4),
				openflow13.NewInPortField(cfg.FakePort),
			),
			Instructions: []openflow13.Instruction{ofswitch.GotoTable(TableOutbound)},
		},
		{
			Table:    TableClassify,
			Priority: PriorityDispatch,
			Match: ofswitch.NewMatch(
				openflow13.NewEthTypeField(ofswitch.EtherTypeARP),
				openflow13.NewInPortField(cfg.FakePort),
			),
			Instructions: []openflow13.Instruction{ofswitch.GotoTable(TableOutbound)},
		},
	}

	for _, rule := range dispatch {
		if err := s.InsertRule(rule); err != nil {
			return fmt.Errorf("failed to install dispatch rule in table %d: %w", rule.Table, err)
		}
	}
	return nil
}
