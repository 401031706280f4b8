package ofswitch

import (
	"github.com/contiv/libOpenflow/openflow13"
)

// Ethertypes and IP protocol numbers matched by the pipeline.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
	EtherTypeVLAN uint16 = 0x8100

	IPProtoTCP uint8 = 6
)

// NewMatch assembles an OXM match from the given fields.
func NewMatch(fields ...*openflow13.MatchField) *openflow13.Match {
	m := openflow13.NewMatch()
	for _, f := range fields {
		m.AddField(*f)
	}
	return m
}

// ApplyActions wraps actions in a single apply-actions instruction,
// preserving their order.
func ApplyActions(actions ...openflow13.Action) openflow13.Instruction {
	instr := openflow13.NewInstrApplyActions()
	for _, act := range actions {
		instr.AddAction(act, false)
	}
	return instr
}

// GotoTable returns a goto-table instruction.
func GotoTable(table uint8) openflow13.Instruction {
	return openflow13.NewInstrGotoTable(table)
}

// OutputController returns an apply-actions instruction punting the full
// packet to the controller.
func OutputController() openflow13.Instruction {
	out := openflow13.NewActionOutput(openflow13.P_CONTROLLER)
	out.MaxLen = 0xffff // OFPCML_NO_BUFFER
	return ApplyActions(out)
}

// MatchVLANPresent returns a vlan_vid field matching any tagged packet,
// regardless of id: value and mask are both OFPVID_PRESENT, so only the
// present bit is examined. The library ORs OFPVID_PRESENT into the value
// itself; the mask is taken as passed.
func MatchVLANPresent() *openflow13.MatchField {
	mask := uint16(openflow13.OFPVID_PRESENT)
	return openflow13.NewVlanIdField(0, &mask)
}
