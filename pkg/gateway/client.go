// Package gateway defines the boundary to the device: a per-device client
// that executes group and member writes and dumps. The in-repo
// implementation programs a device agent's table DB over Redis; other
// transports implement the same interface.
package gateway

import (
	"context"
	"sync"

	"github.com/grouplane-network/grouplane/pkg/model"
)

// WriteOp is the write type of a group or member RPC.
type WriteOp int

const (
	Insert WriteOp = iota
	Modify
	Delete
)

func (op WriteOp) String() string {
	switch op {
	case Insert:
		return "INSERT"
	case Modify:
		return "MODIFY"
	case Delete:
		return "DELETE"
	}
	return "UNKNOWN"
}

// Client executes write and dump RPCs against one device. Calls block until
// completion or context deadline; the driver converts failures into typed
// fallback values, never propagating them past the write orchestration.
type Client interface {
	// WriteGroup programs, updates or removes one group.
	WriteGroup(ctx context.Context, group model.Group, op WriteOp) error
	// WriteMembers programs, updates or removes members. The driver always
	// calls this with single-element lists.
	WriteMembers(ctx context.Context, members []model.Member, op WriteOp) error
	// DumpGroups reads all groups of an action profile.
	DumpGroups(ctx context.Context, profile model.ActionProfileID) ([]model.Group, error)
	// DumpMemberIDs reads the ids of all members of an action profile. The
	// protocol returns identities only, no actions and no weights.
	DumpMemberIDs(ctx context.Context, profile model.ActionProfileID) ([]model.MemberID, error)
	// RemoveMembers deletes members in one batch and returns the ids the
	// device actually removed.
	RemoveMembers(ctx context.Context, profile model.ActionProfileID, ids []model.MemberID) ([]model.MemberID, error)
}

// Provider resolves the client for a device.
type Provider interface {
	Client(device model.DeviceID) (Client, bool)
}

// Pool is a Provider backed by a registration map.
type Pool struct {
	mu      sync.RWMutex
	clients map[model.DeviceID]Client
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{clients: make(map[model.DeviceID]Client)}
}

// Add registers the client for a device, replacing any previous one.
func (p *Pool) Add(device model.DeviceID, c Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[device] = c
}

// Remove drops the client for a device.
func (p *Pool) Remove(device model.DeviceID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, device)
}

// Client returns the client for a device.
func (p *Pool) Client(device model.DeviceID) (Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[device]
	return c, ok
}
