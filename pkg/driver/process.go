package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/grouplane-network/grouplane/pkg/audit"
	"github.com/grouplane-network/grouplane/pkg/gateway"
	"github.com/grouplane-network/grouplane/pkg/model"
	"github.com/grouplane-network/grouplane/pkg/translate"
	"github.com/grouplane-network/grouplane/pkg/util"
)

// operation selects the write path for one group.
type operation int

const (
	opApply operation = iota
	opRemove
)

func (op operation) String() string {
	switch op {
	case opApply:
		return "APPLY"
	case opRemove:
		return "REMOVE"
	}
	return "UNKNOWN"
}

// processGroup runs the apply/remove state machine for one translated
// group under the group's partition lock. On apply, members go first and
// the group last, with rollback of applied members if any step fails: the
// device is left with no trace of a failed group. On remove, only the
// group is deleted: members may be shared by other groups and are
// reclaimed by reconciliation cleanup when unreferenced.
func (d *Driver) processGroup(ctx context.Context, client gateway.Client, device model.DeviceID,
	g model.Group, desc *model.GroupDesc, op operation) error {

	handle := model.NewGroupHandle(device, g)
	start := time.Now()

	d.locks.Lock(handle.Key())
	defer d.locks.Unlock(handle.Key())

	event := audit.NewEvent(string(device), string(g.Profile), auditOp(op)).
		WithGroup(handle.Key()).
		WithMembers(len(g.Members))
	defer func() {
		audit.Log(event.WithDuration(time.Since(start)))
	}()

	switch op {
	case opApply:
		if !d.applyGroupWithMembersOrNothing(ctx, client, device, g, handle) {
			err := fmt.Errorf("applying %s: %w", handle, util.ErrWriteFailed)
			event.WithError(err)
			return err
		}
		d.translator.Learn(translate.Record{Device: device, Original: *desc, Translated: g})
		event.WithSuccess()
		return nil
	case opRemove:
		if !d.deleteGroup(ctx, client, device, g, handle) {
			err := fmt.Errorf("removing %s: %w", handle, util.ErrWriteFailed)
			event.WithError(err)
			return err
		}
		d.translator.Forget(handle)
		event.WithSuccess()
		return nil
	default:
		util.WithDevice(string(device)).Errorf(
			"Unknown group operation type %s, cannot process group", op)
		event.WithError(util.ErrUnknownOperation)
		return util.ErrUnknownOperation
	}
}

func auditOp(op operation) string {
	if op == opRemove {
		return audit.OpRemove
	}
	return audit.OpApply
}

// applyGroupWithMembersOrNothing applies members first, then the group; if
// the group write fails the just-applied members are deleted.
func (d *Driver) applyGroupWithMembersOrNothing(ctx context.Context, client gateway.Client,
	device model.DeviceID, g model.Group, handle model.GroupHandle) bool {

	if !d.applyAllMembersOrNothing(ctx, client, device, g.Members) {
		return false
	}
	if !d.applyGroup(ctx, client, device, g, handle) {
		d.deleteMembers(ctx, client, device, g.Members)
		return false
	}
	return true
}

// applyGroup writes the group, INSERT when its handle is absent from the
// mirror and MODIFY otherwise, and records the confirmed value.
func (d *Driver) applyGroup(ctx context.Context, client gateway.Client, device model.DeviceID,
	g model.Group, handle model.GroupHandle) bool {

	op := gateway.Insert
	if _, ok := d.groupMirror.Get(handle); ok {
		op = gateway.Modify
	}
	ok := d.callWrite(ctx, device, fmt.Sprintf("performing action profile group %s", op),
		func(c context.Context) error {
			return client.WriteGroup(c, g, op)
		})
	if ok {
		d.groupMirror.Put(handle, g)
	}
	return ok
}

func (d *Driver) deleteGroup(ctx context.Context, client gateway.Client, device model.DeviceID,
	g model.Group, handle model.GroupHandle) bool {

	ok := d.callWrite(ctx, device, fmt.Sprintf("performing action profile group %s", gateway.Delete),
		func(c context.Context) error {
			return client.WriteGroup(c, g, gateway.Delete)
		})
	if ok {
		d.groupMirror.Remove(handle)
	}
	return ok
}

// applyAllMembersOrNothing gives "all members or nothing" semantics for the
// members of one group: on partial failure every member that did succeed is
// deleted again.
func (d *Driver) applyAllMembersOrNothing(ctx context.Context, client gateway.Client,
	device model.DeviceID, members []model.Member) bool {

	var applied []model.Member
	for _, m := range members {
		if d.applyMember(ctx, client, device, m) {
			applied = append(applied, m)
		}
	}
	if len(applied) == len(members) {
		return true
	}
	d.deleteMembers(ctx, client, device, applied)
	return false
}

// applyMember writes one member, INSERT when absent from the mirror and
// MODIFY when present. The mirror records an identity-only placeholder:
// the dump protocol cannot read attributes back, so presence is all the
// mirror can vouch for.
func (d *Driver) applyMember(ctx context.Context, client gateway.Client, device model.DeviceID,
	m model.Member) bool {

	handle := model.NewMemberHandle(device, m)
	op := gateway.Insert
	if _, ok := d.memberMirror.Get(handle); ok {
		op = gateway.Modify
	}
	ok := d.callWrite(ctx, device, fmt.Sprintf("performing action profile member %s", op),
		func(c context.Context) error {
			return client.WriteMembers(c, []model.Member{m}, op)
		})
	if ok {
		d.memberMirror.Put(handle, model.DummyMember(m.Profile, m.ID))
	}
	return ok
}

// deleteMembers is the rollback path. Failures here are not retried; any
// resulting drift is repaired by the next reconciliation pass.
func (d *Driver) deleteMembers(ctx context.Context, client gateway.Client, device model.DeviceID,
	members []model.Member) {

	for _, m := range members {
		handle := model.NewMemberHandle(device, m)
		ok := d.callWrite(ctx, device, fmt.Sprintf("performing action profile member %s", gateway.Delete),
			func(c context.Context) error {
				return client.WriteMembers(c, []model.Member{m}, gateway.Delete)
			})
		if ok {
			d.memberMirror.Remove(handle)
		}
	}
}

// cleanUpInconsistent removes groups and members the last reconciliation
// pass flagged. Runs on the cleanup worker, never on a read request.
// Translation records of removed groups are forgotten via the normal
// remove path; member removal is batched per action profile and the member
// mirror is updated only for ids the device confirms removed.
func (d *Driver) cleanUpInconsistent(client gateway.Client, device model.DeviceID,
	groups []model.Group, members []model.MemberHandle) {

	ctx := context.Background()

	if len(groups) > 0 {
		util.WithDevice(string(device)).Warnf(
			"Found %d inconsistent action profile groups, removing them...", len(groups))
		for _, g := range groups {
			util.WithDevice(string(device)).Debugf("Removing inconsistent group %s", g)
			d.processGroup(ctx, client, device, g, nil, opRemove)
		}
	}

	if len(members) == 0 {
		return
	}
	util.WithDevice(string(device)).Warnf(
		"Found %d inconsistent action profile members, removing them...", len(members))

	byProfile := make(map[model.ActionProfileID][]model.MemberID)
	for _, h := range members {
		byProfile[h.Profile()] = append(byProfile[h.Profile()], h.MemberID())
	}
	for profile, ids := range byProfile {
		removed := callDump(ctx, d.cfg.WriteDeadline, device,
			"cleaning up action profile members",
			func(c context.Context) ([]model.MemberID, error) {
				return client.RemoveMembers(c, profile, ids)
			})
		for _, id := range removed {
			d.memberMirror.Remove(model.MemberHandleOf(device, profile, id))
		}
	}
}

// callWrite issues one write RPC under the configured deadline. Failures
// and timeouts are absorbed into a logged false return, the protocol-level
// fallback, never propagated as errors.
func (d *Driver) callWrite(ctx context.Context, device model.DeviceID, desc string,
	fn func(ctx context.Context) error) bool {

	c, cancel := context.WithTimeout(ctx, d.cfg.WriteDeadline)
	defer cancel()
	if err := fn(c); err != nil {
		util.WithDevice(string(device)).Warnf("Error while %s: %v", desc, err)
		return false
	}
	return true
}

// callDump issues one read RPC under a deadline, falling back to an empty
// result on failure or timeout.
func callDump[T any](ctx context.Context, deadline time.Duration, device model.DeviceID,
	desc string, fn func(ctx context.Context) ([]T, error)) []T {

	c, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	out, err := fn(c)
	if err != nil {
		util.WithDevice(string(device)).Warnf("Error while %s: %v", desc, err)
		return nil
	}
	return out
}
