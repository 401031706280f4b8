package model

import (
	"time"
)

// FlowEvent records one learned TCP flow: the first packet seen from the
// coprocessor segment together with the NAT address it was mapped to.
// Addresses are kept in string form so the event serializes cleanly.
type FlowEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SrcMAC    string    `json:"src_mac"`
	DstMAC    string    `json:"dst_mac"`
	SrcIP     string    `json:"src_ip"`
	DstIP     string    `json:"dst_ip"`
	NATSrcIP  string    `json:"nat_src_ip"`
	SrcPort   uint16    `json:"src_port"`
	DstPort   uint16    `json:"dst_port"`
}

// Notifier defines a generic interface for pushing flow events to an
// external observer. Implementations must tolerate bursts of duplicate
// events for the same flow.
type Notifier interface {
	Notify(ev *FlowEvent) error
	Close()
}
