package journal

import (
	"context"
	"time"
)

// Journal is the fault journal as seen by the rest of the agent.
type Journal interface {
	Record(ctx context.Context, event Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
	OnFault(source, phase string, err error)
	Close() error
}

// Repository defines the interface for fault event storage
type Repository interface {
	Record(event Event) error
	Recent(limit int) ([]Event, error)
	Close() error
}

// Event is one absorbed fault.
type Event struct {
	Timestamp time.Time `json:"timestamp"`

	// Source is the sensor name, or a subsystem such as "network".
	Source  string `json:"source"`
	Phase   string `json:"phase"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
