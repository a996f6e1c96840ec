// Package driver implements the group reconciliation and write-ordering
// engine. It translates abstract group descriptions into device form,
// applies or removes them through the gateway with rollback on partial
// failure, keeps the group and member mirrors in step with what the device
// confirmed, and repairs drift found during read-back.
package driver

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grouplane-network/grouplane/pkg/gateway"
	"github.com/grouplane-network/grouplane/pkg/mirror"
	"github.com/grouplane-network/grouplane/pkg/model"
	"github.com/grouplane-network/grouplane/pkg/pipeline"
	"github.com/grouplane-network/grouplane/pkg/translate"
	"github.com/grouplane-network/grouplane/pkg/util"
)

// Lock partitions for per-handle serialization. Collisions across handles
// only reduce parallelism.
const lockStripes = 32

// Config tunes a Driver instance.
type Config struct {
	// ReadFromMirror answers GetGroups entirely from the mirror instead of
	// reconciling against the device.
	ReadFromMirror bool
	// WriteDeadline bounds each write RPC. Zero means 5s.
	WriteDeadline time.Duration
	// ReadDeadline bounds each dump RPC. Zero means 10s.
	ReadDeadline time.Duration
	// DumpConcurrency bounds parallel dumps across action profiles during
	// reconciliation. Zero means 4.
	DumpConcurrency int
	// CleanupQueueSize bounds the backlog of scheduled repair tasks. Zero
	// means 64. Tasks beyond the bound are dropped; the next reconciliation
	// pass rediscovers the work.
	CleanupQueueSize int
}

func (c *Config) applyDefaults() {
	if c.WriteDeadline <= 0 {
		c.WriteDeadline = 5 * time.Second
	}
	if c.ReadDeadline <= 0 {
		c.ReadDeadline = 10 * time.Second
	}
	if c.DumpConcurrency <= 0 {
		c.DumpConcurrency = 4
	}
	if c.CleanupQueueSize <= 0 {
		c.CleanupQueueSize = 64
	}
}

// GroupChange is one requested change in a PerformOperation batch.
type GroupChange struct {
	Desc model.GroupDesc
	Op   model.ChangeOp
}

// ChangeResult reports the outcome of one requested change.
type ChangeResult struct {
	Profile model.ActionProfileID
	Group   model.GroupID
	Op      model.ChangeOp
	Err     error
}

// GroupState annotates a reconciled group entry.
type GroupState string

// GroupStateAdded marks a group confirmed present on the device and
// consistent with controller bookkeeping.
const GroupStateAdded GroupState = "added"

// GroupEntry is one reconciled result of GetGroups: the original abstract
// description plus presence state and observed age.
type GroupEntry struct {
	Desc  model.GroupDesc
	State GroupState
	Life  time.Duration
}

// Driver is the reconciliation engine. One instance serves any number of
// devices; all per-device state is keyed by device-scoped handles.
type Driver struct {
	clients    gateway.Provider
	pipeline   *pipeline.Model
	translator translate.Translator

	groupMirror  *mirror.Mirror[model.GroupHandle, model.Group]
	memberMirror *mirror.Mirror[model.MemberHandle, model.Member]

	locks   *util.StripedMutex
	cleanup *cleanupWorker
	cfg     Config
}

// New creates a driver and starts its cleanup worker.
func New(clients gateway.Provider, p *pipeline.Model, tr translate.Translator, cfg Config) *Driver {
	cfg.applyDefaults()
	d := &Driver{
		clients:      clients,
		pipeline:     p,
		translator:   tr,
		groupMirror:  mirror.New[model.GroupHandle](model.Group.Equal),
		memberMirror: mirror.New[model.MemberHandle](model.Member.Equal),
		locks:        util.NewStripedMutex(lockStripes),
		cleanup:      newCleanupWorker(cfg.CleanupQueueSize),
		cfg:          cfg,
	}
	return d
}

// Close stops the cleanup worker after draining queued repair tasks.
func (d *Driver) Close() {
	d.cleanup.stop()
}

// PerformOperation applies a batch of requested group changes on a device.
// Changes carrying the replication group type are filtered out, as they are
// not programmable as action profile groups. Each change is processed
// independently; one result is returned per processed change.
func (d *Driver) PerformOperation(ctx context.Context, device model.DeviceID, changes []GroupChange) []ChangeResult {
	client, ok := d.clients.Client(device)
	if !ok {
		util.WithDevice(string(device)).Error("No gateway client for device")
		results := make([]ChangeResult, 0, len(changes))
		for _, ch := range changes {
			results = append(results, ChangeResult{
				Profile: ch.Desc.Profile, Group: ch.Desc.ID, Op: ch.Op,
				Err: fmt.Errorf("device %s: %w", device, util.ErrNotConnected),
			})
		}
		return results
	}

	var results []ChangeResult
	for _, ch := range changes {
		if ch.Desc.Type == model.GroupTypeAll {
			util.WithDevice(string(device)).Debugf(
				"Skipping replication group %d, not an action profile group", ch.Desc.ID)
			continue
		}
		desc := ch.Desc
		desc.Device = device

		res := ChangeResult{Profile: desc.Profile, Group: desc.ID, Op: ch.Op}

		translated, err := d.translator.Translate(desc)
		if err != nil {
			util.WithDevice(string(device)).Warnf(
				"Unable to translate group, aborting %s operation: %v", ch.Op, err)
			res.Err = err
			results = append(results, res)
			continue
		}

		op := opApply
		if ch.Op == model.ChangeOpDelete {
			op = opRemove
		}
		res.Err = d.processGroup(ctx, client, device, translated, &desc, op)
		results = append(results, res)
	}
	return results
}

// GetGroups returns the reconciled groups of a device: only entries whose
// device state agrees with the translation store and mirror are returned.
// Anything inconsistent is excluded and scheduled for background cleanup.
func (d *Driver) GetGroups(ctx context.Context, device model.DeviceID) ([]GroupEntry, error) {
	if d.cfg.ReadFromMirror {
		return d.groupsFromMirror(device), nil
	}

	client, ok := d.clients.Client(device)
	if !ok {
		return nil, fmt.Errorf("device %s: %w", device, util.ErrNotConnected)
	}

	profiles := d.pipeline.ProfileIDs()
	groupsOnDevice, membersOnDevice := d.dumpDevice(ctx, client, device, profiles)

	// A transient empty read must not wipe the mirrors.
	if len(groupsOnDevice) == 0 {
		return nil, nil
	}

	d.syncGroupMirror(device, groupsOnDevice)
	d.syncMemberMirror(device, membersOnDevice)

	var results []GroupEntry
	var validGroups []model.Group
	var inconsistentGroups []model.Group
	for _, g := range groupsOnDevice {
		entry, ok := d.forgeGroupEntry(device, g)
		if !ok {
			// On device but unknown to the translation store or mirror.
			inconsistentGroups = append(inconsistentGroups, g)
			continue
		}
		validGroups = append(validGroups, g)
		results = append(results, entry)
	}

	// Members referenced by no valid group are inconsistent too.
	membersToKeep := make(map[model.MemberHandle]bool)
	for _, g := range validGroups {
		for _, m := range g.Members {
			membersToKeep[model.NewMemberHandle(device, m)] = true
		}
	}
	var inconsistentMembers []model.MemberHandle
	for h := range membersOnDevice {
		if !membersToKeep[h] {
			inconsistentMembers = append(inconsistentMembers, h)
		}
	}

	if len(inconsistentGroups) > 0 || len(inconsistentMembers) > 0 {
		d.cleanup.schedule(func() {
			d.cleanUpInconsistent(client, device, inconsistentGroups, inconsistentMembers)
		})
	}

	return results, nil
}

// dumpDevice reads the live group and member-id sets across all action
// profiles, a bounded number of profiles in parallel. Failed or timed-out
// dumps fall back to empty sets.
func (d *Driver) dumpDevice(ctx context.Context, client gateway.Client, device model.DeviceID,
	profiles []model.ActionProfileID) ([]model.Group, map[model.MemberHandle]bool) {

	groupsByProfile := make([][]model.Group, len(profiles))
	idsByProfile := make([][]model.MemberID, len(profiles))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.cfg.DumpConcurrency)
	for i, profile := range profiles {
		i, profile := i, profile
		eg.Go(func() error {
			groupsByProfile[i] = callDump(egCtx, d.cfg.ReadDeadline, device,
				fmt.Sprintf("dumping groups of %s", profile),
				func(c context.Context) ([]model.Group, error) {
					return client.DumpGroups(c, profile)
				})
			idsByProfile[i] = callDump(egCtx, d.cfg.ReadDeadline, device,
				fmt.Sprintf("dumping member ids of %s", profile),
				func(c context.Context) ([]model.MemberID, error) {
					return client.DumpMemberIDs(c, profile)
				})
			return nil
		})
	}
	eg.Wait()

	var groups []model.Group
	for _, gs := range groupsByProfile {
		groups = append(groups, gs...)
	}
	members := make(map[model.MemberHandle]bool)
	for i, ids := range idsByProfile {
		for _, id := range ids {
			members[model.MemberHandleOf(device, profiles[i], id)] = true
		}
	}
	return groups, members
}

func (d *Driver) syncGroupMirror(device model.DeviceID, groups []model.Group) {
	want := make(map[model.GroupHandle]model.Group, len(groups))
	for _, g := range groups {
		want[model.NewGroupHandle(device, g)] = g
	}
	d.groupMirror.Sync(device, want)
}

func (d *Driver) syncMemberMirror(device model.DeviceID, members map[model.MemberHandle]bool) {
	// The dump returns identities only, so the mirror holds placeholders.
	want := make(map[model.MemberHandle]model.Member, len(members))
	for h := range members {
		want[h] = model.DummyMember(h.Profile(), h.MemberID())
	}
	d.memberMirror.Sync(device, want)
}

func (d *Driver) groupsFromMirror(device model.DeviceID) []GroupEntry {
	var results []GroupEntry
	for _, e := range d.groupMirror.GetAll(device) {
		if entry, ok := d.forgeGroupEntry(device, e.Value); ok {
			results = append(results, entry)
		}
	}
	return results
}

// forgeGroupEntry reconciles one device group against controller
// bookkeeping. A group with no translation record, a translated form that
// differs from the device's, or no mirror entry is inconsistent.
func (d *Driver) forgeGroupEntry(device model.DeviceID, g model.Group) (GroupEntry, bool) {
	handle := model.NewGroupHandle(device, g)
	rec, ok := d.translator.Lookup(handle)
	if !ok {
		util.WithDevice(string(device)).Warnf("Group handle not found in translation store: %s", handle)
		return GroupEntry{}, false
	}
	if !rec.Translated.Equal(g) {
		util.WithDevice(string(device)).Warnf(
			"Group obtained from device is different from the one in translation store: device=%s, store=%s",
			g, rec.Translated)
		return GroupEntry{}, false
	}
	timed, ok := d.groupMirror.Get(handle)
	if !ok {
		util.WithDevice(string(device)).Warnf("Group handle not found in device mirror: %s", handle)
		return GroupEntry{}, false
	}
	return GroupEntry{Desc: rec.Original, State: GroupStateAdded, Life: timed.Life()}, true
}
