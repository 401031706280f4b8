package controller

import (
	"log"
	"sync"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/ofnet/ofctrl"

	"NetDecoy/internal/config"
	"NetDecoy/internal/model"
	"NetDecoy/internal/ofswitch"
	"NetDecoy/internal/packet"
	"NetDecoy/internal/pipeline"
	"NetDecoy/internal/proxy"
)

// Controller reacts to the event stream of a single switch session:
// connect rebuilds the pipeline, packet-in dispatches by ingress port to
// the ARP proxy or the flow learner. Handlers never block and issue a
// small constant number of commands per event; correctness does not
// depend on mutual exclusion between packet-ins, only on the switch's
// replace-on-identical-match semantics.
type Controller struct {
	cfg       *config.Static
	arp       *proxy.ARPProxy
	learner   *proxy.FlowLearner
	stats     *model.Stats
	notifiers []model.Notifier

	mu   sync.Mutex
	dpid string // connected datapath id, empty when none
}

// New wires a controller from the static configuration. Notifiers are
// optional observers of learned flows; failures to notify are logged and
// never affect the datapath.
func New(cfg *config.Static, stats *model.Stats, notifiers ...model.Notifier) *Controller {
	return &Controller{
		cfg:       cfg,
		arp:       proxy.NewARPProxy(cfg),
		learner:   proxy.NewFlowLearner(cfg),
		stats:     stats,
		notifiers: notifiers,
	}
}

// ListenAndServe runs the OpenFlow controller loop on addr. It blocks
// for the lifetime of the process.
func (c *Controller) ListenAndServe(addr string) {
	ofc := ofctrl.NewController(c)
	ofc.Listen(addr)
}

// SwitchConnected implements ofctrl.AppInterface. The first switch to
// connect owns the controller; later datapaths are refused. All prior
// state on the switch is wiped and the pipeline reinstalled, so a
// reconnect always starts from a clean slate.
func (c *Controller) SwitchConnected(sw *ofctrl.OFSwitch) {
	dpid := sw.DPID().String()

	c.mu.Lock()
	if c.dpid != "" && c.dpid != dpid {
		c.mu.Unlock()
		log.Printf("Ignoring additional switch %s: already serving %s", dpid, c.dpid)
		return
	}
	c.dpid = dpid
	c.mu.Unlock()

	log.Printf("Switch %s connected, installing pipeline", dpid)
	if err := pipeline.Bootstrap(ofswitch.NewSession(sw), c.cfg); err != nil {
		log.Printf("Pipeline bootstrap for %s failed: %v", dpid, err)
		return
	}
	c.stats.SwitchConnected.Store(true)
}

// SwitchDisconnected implements ofctrl.AppInterface. All in-flight work
// for the session is moot; rule state dies with the switch.
func (c *Controller) SwitchDisconnected(sw *ofctrl.OFSwitch) {
	dpid := sw.DPID().String()

	c.mu.Lock()
	if c.dpid == dpid {
		c.dpid = ""
		c.stats.SwitchConnected.Store(false)
	}
	c.mu.Unlock()

	log.Printf("Switch %s disconnected", dpid)
}

// PacketRcvd implements ofctrl.AppInterface. It unwraps the packet-in
// and hands the raw frame to the explicit dispatch in HandlePacketIn.
func (c *Controller) PacketRcvd(sw *ofctrl.OFSwitch, pkt *ofctrl.PacketIn) {
	c.mu.Lock()
	serving := c.dpid == sw.DPID().String()
	c.mu.Unlock()
	if !serving {
		return
	}

	inPort, ok := ofswitch.InPort(pkt)
	if !ok {
		return
	}
	frame, err := pkt.Data.MarshalBinary()
	if err != nil {
		return
	}
	c.HandlePacketIn(ofswitch.NewSession(sw), inPort, frame)
}

// MultipartReply implements ofctrl.AppInterface. Table contents are
// never read back, so statistics replies are ignored.
func (c *Controller) MultipartReply(sw *ofctrl.OFSwitch, rep *openflow13.MultipartReply) {
}

// HandlePacketIn dispatches one packet-in by ingress port. Frames from
// any other port, and frames the target component cannot parse, are
// silently dropped: a missed learn only means the flow keeps punting to
// the controller until an install succeeds.
func (c *Controller) HandlePacketIn(s ofswitch.Session, inPort uint32, frame []byte) {
	view, err := packet.Decode(frame)
	if err != nil {
		c.stats.PacketsIgnored.Add(1)
		return
	}

	switch inPort {
	case c.cfg.FakePort:
		sent, err := c.arp.Handle(s, view)
		if err != nil {
			log.Printf("ARP proxy error: %v", err)
			return
		}
		if sent {
			c.stats.ARPReplies.Add(1)
		} else {
			c.stats.PacketsIgnored.Add(1)
		}

	case c.cfg.CoproPort:
		ev, err := c.learner.Handle(s, view)
		if err != nil {
			log.Printf("Flow learner error: %v", err)
			return
		}
		if ev == nil {
			c.stats.PacketsIgnored.Add(1)
			return
		}
		c.stats.FlowsLearned.Add(1)
		c.notify(ev)

	default:
		c.stats.PacketsIgnored.Add(1)
	}
}

func (c *Controller) notify(ev *model.FlowEvent) {
	for _, n := range c.notifiers {
		if err := n.Notify(ev); err != nil {
			log.Printf("Failed to publish flow event: %v", err)
		}
	}
}
