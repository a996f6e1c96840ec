// Package translate converts abstract group descriptions into their
// device-specific form and keeps a durable record of every translation it
// has produced, keyed by group handle. The record is what lets the driver
// recognize its own state when it reads the device back.
package translate

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/grouplane-network/grouplane/pkg/model"
	"github.com/grouplane-network/grouplane/pkg/pipeline"
	"github.com/grouplane-network/grouplane/pkg/util"
)

// Record is one live translation: the caller's original description, the
// translated device form, and the device the pair is scoped to. At most one
// record exists per handle; Learn replaces, Forget removes.
type Record struct {
	Device     model.DeviceID  `json:"device"`
	Original   model.GroupDesc `json:"original"`
	Translated model.Group     `json:"translated"`
}

// Handle returns the group handle the record is stored under.
func (r Record) Handle() model.GroupHandle {
	return model.NewGroupHandle(r.Device, r.Translated)
}

// Translator is the capability the driver consumes: translation plus the
// learn/lookup/forget lifecycle of translation records.
type Translator interface {
	// Translate converts an abstract description to its device form. A
	// translation failure aborts the whole operation for that group; the
	// driver issues no writes for a group that fails to translate.
	Translate(desc model.GroupDesc) (model.Group, error)
	// Lookup returns the live record for a handle, if any.
	Lookup(h model.GroupHandle) (Record, bool)
	// Learn stores the record for a handle, replacing any previous one.
	Learn(r Record)
	// Forget removes the record for a handle.
	Forget(h model.GroupHandle)
}

// GroupTranslator translates weighted buckets into action profile members
// against a pipeline model, and delegates record persistence to a Store.
type GroupTranslator struct {
	pipeline *pipeline.Model
	store    Store
}

// New creates a translator for the given pipeline, persisting records in
// the given store.
func New(p *pipeline.Model, store Store) *GroupTranslator {
	return &GroupTranslator{pipeline: p, store: store}
}

// Translate derives one member per bucket. Member ids are computed
// deterministically from the bucket content, so re-translating the same
// description always yields the same device form.
func (t *GroupTranslator) Translate(desc model.GroupDesc) (model.Group, error) {
	group := fmt.Sprintf("group-%d", desc.ID)

	prof, ok := t.pipeline.Profile(desc.Profile)
	if !ok {
		return model.Group{}, util.NewTranslationError(string(desc.Device), group,
			fmt.Sprintf("action profile %q not in pipeline %q", desc.Profile, t.pipeline.Name))
	}
	if desc.Type == model.GroupTypeAll {
		return model.Group{}, util.NewTranslationError(string(desc.Device), group,
			"replication groups are not programmable as action profile groups")
	}
	if len(desc.Buckets) == 0 {
		return model.Group{}, util.NewTranslationError(string(desc.Device), group, "no buckets")
	}
	if prof.MaxSize > 0 && len(desc.Buckets) > prof.MaxSize {
		return model.Group{}, util.NewTranslationError(string(desc.Device), group,
			fmt.Sprintf("%d buckets exceed profile max size %d", len(desc.Buckets), prof.MaxSize))
	}

	members := make([]model.Member, 0, len(desc.Buckets))
	seen := make(map[model.MemberID]model.Member)
	for _, b := range desc.Buckets {
		if !prof.HasAction(b.Action.ID) {
			return model.Group{}, util.NewTranslationError(string(desc.Device), group,
				fmt.Sprintf("action %q not accepted by profile %q", b.Action.ID, desc.Profile))
		}
		weight := b.Weight
		if weight <= 0 {
			weight = 1
		}
		m := model.Member{
			Profile: desc.Profile,
			ID:      memberID(b.Action, weight),
			Action:  b.Action,
			Weight:  weight,
		}
		if prev, dup := seen[m.ID]; dup {
			if !prev.Equal(m) {
				return model.Group{}, util.NewTranslationError(string(desc.Device), group,
					fmt.Sprintf("member id collision between distinct buckets (id %d)", m.ID))
			}
			// Identical bucket repeated, fold into one member.
			continue
		}
		seen[m.ID] = m
		members = append(members, m)
	}

	return model.Group{Profile: desc.Profile, ID: desc.ID, Members: members}, nil
}

// Lookup returns the live record for a handle.
func (t *GroupTranslator) Lookup(h model.GroupHandle) (Record, bool) {
	return t.store.Get(h.Key())
}

// Learn stores a record under its handle.
func (t *GroupTranslator) Learn(r Record) {
	t.store.Put(r.Handle().Key(), r)
}

// Forget removes the record for a handle.
func (t *GroupTranslator) Forget(h model.GroupHandle) {
	t.store.Delete(h.Key())
}

// memberID hashes an action and weight into a stable non-zero member id.
// The same bucket content always maps to the same id, which is what makes
// members shareable across groups pointing at the same action.
func memberID(a model.Action, weight int) model.MemberID {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s/%d", a.ID, weight)
	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "/%s=%s", k, a.Params[k])
	}
	id := model.MemberID(h.Sum32())
	if id == 0 {
		id = 1
	}
	return id
}
