// Package audit records the outcome of every group programming operation.
package audit

import (
	"fmt"
	"time"
)

// Event is one auditable group operation outcome.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Device    string        `json:"device"`
	Profile   string        `json:"profile"`
	Group     string        `json:"group,omitempty"`
	Operation string        `json:"operation"`
	Members   int           `json:"members,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Operation names recorded in events
const (
	OpApply   = "apply"
	OpRemove  = "remove"
	OpCleanup = "cleanup"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	Profile     string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
}

// NewEvent creates a new audit event
func NewEvent(device, profile, operation string) *Event {
	return &Event{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		Device:    device,
		Profile:   profile,
		Operation: operation,
	}
}

// WithGroup sets the group identity
func (e *Event) WithGroup(group string) *Event {
	e.Group = group
	return e
}

// WithMembers sets the member count touched by the operation
func (e *Event) WithMembers(n int) *Event {
	e.Members = n
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}
