package ofswitch

import (
	"github.com/contiv/libOpenflow/openflow13"
)

// Rule is one flow-table entry to install. The switch keys entries by
// (table, priority, match); re-adding an identical rule replaces the
// previous one, which is what makes duplicate installs from packet-in
// bursts safe.
type Rule struct {
	Table        uint8
	Priority     uint16
	IdleTimeout  uint16
	Match        *openflow13.Match
	Instructions []openflow13.Instruction
}

// Session is the command surface of one connected switch. All table
// state lives on the switch; rules are only ever written through this
// interface, never read back. Commands are fire-and-forget: transport
// failures surface from the underlying connection, not from here.
type Session interface {
	// DeleteAllRules wipes every rule in every table.
	DeleteAllRules() error
	// InsertRule adds one rule, replacing any identical match.
	InsertRule(r Rule) error
	// SendPacket emits a raw frame out the given switch port.
	SendPacket(port uint32, frame []byte) error
}
