// Package events publishes gate outcome notifications so fleet tooling can
// observe which instances migrated (and halted) during a rollout.
package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicGateMigrated = "bootgate.gate.migrated"
	TopicGateNoOp     = "bootgate.gate.noop"
)

// GateOutcome is the payload published on gate outcome topics.
type GateOutcome struct {
	RunID   string    `json:"run_id"`
	Target  string    `json:"target"`
	Applied []uint64  `json:"applied,omitempty"`
	Halting bool      `json:"halting"`
	At      time.Time `json:"at"`
}

// Publisher publishes gate events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
