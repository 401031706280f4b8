package ofswitch

import (
	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/libOpenflow/util"
	"github.com/contiv/ofnet/ofctrl"
)

// allTables is OFPTT_ALL, addressing every flow table in a delete.
const allTables uint8 = 0xff

// switchSession implements Session over a connected ofctrl switch.
type switchSession struct {
	sw *ofctrl.OFSwitch
}

// NewSession wraps a connected switch in the Session command surface.
func NewSession(sw *ofctrl.OFSwitch) Session {
	return &switchSession{sw: sw}
}

func (s *switchSession) DeleteAllRules() error {
	fm := openflow13.NewFlowMod()
	fm.Command = openflow13.FC_DELETE
	fm.TableId = allTables
	fm.OutPort = openflow13.P_ANY
	fm.OutGroup = openflow13.OFPG_ANY
	s.sw.Send(fm)
	return nil
}

func (s *switchSession) InsertRule(r Rule) error {
	fm := openflow13.NewFlowMod()
	fm.Command = openflow13.FC_ADD
	fm.TableId = r.Table
	fm.Priority = r.Priority
	fm.IdleTimeout = r.IdleTimeout
	if r.Match != nil {
		fm.Match = *r.Match
	}
	for _, instr := range r.Instructions {
		fm.AddInstruction(instr)
	}
	s.sw.Send(fm)
	return nil
}

func (s *switchSession) SendPacket(port uint32, frame []byte) error {
	po := openflow13.NewPacketOut()
	po.InPort = openflow13.P_CONTROLLER
	po.AddAction(openflow13.NewActionOutput(port))
	po.Data = util.NewBuffer(frame)
	s.sw.Send(po)
	return nil
}

// InPort extracts the ingress port from a packet-in's match fields.
func InPort(pkt *ofctrl.PacketIn) (uint32, bool) {
	for _, field := range pkt.Match.Fields {
		if field.Class == openflow13.OXM_CLASS_OPENFLOW_BASIC && field.Field == openflow13.OXM_FIELD_IN_PORT {
			if port, ok := field.Value.(*openflow13.InPortField); ok {
				return port.InPort, true
			}
		}
	}
	return 0, false
}
