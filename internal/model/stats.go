package model

import (
	"sync/atomic"
	"time"
)

// Stats holds the controller's run counters, shared between the event
// handlers and the status API.
type Stats struct {
	StartTime       time.Time
	SwitchConnected atomic.Bool
	FlowsLearned    atomic.Uint64
	ARPReplies      atomic.Uint64
	PacketsIgnored  atomic.Uint64
}

// NewStats returns a Stats anchored at the current time.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}
