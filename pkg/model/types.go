// Package model defines the entities the group driver programs on a device:
// abstract group descriptions, their device-specific translated forms, and
// the stable handles used to correlate the two.
package model

import "fmt"

// DeviceID identifies a forwarding device.
type DeviceID string

// ActionProfileID identifies an action profile in the device pipeline.
type ActionProfileID string

// GroupID identifies a group within an action profile.
type GroupID uint32

// MemberID identifies an action profile member. Members are device-wide
// within an action profile and may be referenced by more than one group.
type MemberID uint32

// ActionID identifies an action in the device pipeline.
type ActionID string

// GroupType is the kind of indirection a group provides.
type GroupType string

const (
	GroupTypeSelect   GroupType = "select"
	GroupTypeIndirect GroupType = "indirect"
	// GroupTypeAll is a replication group. The group driver does not program
	// these; requests carrying this type are filtered out.
	GroupTypeAll GroupType = "all"
)

// ChangeOp is the operation requested by the caller for one group.
type ChangeOp string

const (
	ChangeOpAdd    ChangeOp = "add"
	ChangeOpModify ChangeOp = "modify"
	ChangeOpDelete ChangeOp = "delete"
)

// Action is a fully-specified device action: an action id plus runtime
// parameter values (hex-encoded, keyed by parameter name).
type Action struct {
	ID     ActionID          `json:"id" yaml:"id"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Equal reports whether two actions have the same id and parameters.
func (a Action) Equal(other Action) bool {
	if a.ID != other.ID || len(a.Params) != len(other.Params) {
		return false
	}
	for k, v := range a.Params {
		if other.Params[k] != v {
			return false
		}
	}
	return true
}

// Bucket is one entry of an abstract group: an action, a relative weight,
// and an optional watch reference (e.g. a port whose liveness gates the
// bucket).
type Bucket struct {
	Action Action `json:"action" yaml:"action"`
	Weight int    `json:"weight" yaml:"weight"`
	Watch  string `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// GroupDesc is the device-independent description of a group, owned by the
// caller's intent store. The driver treats it as immutable input.
type GroupDesc struct {
	Device    DeviceID        `json:"device" yaml:"device"`
	Profile   ActionProfileID `json:"profile" yaml:"profile"`
	ID        GroupID         `json:"id" yaml:"id"`
	Type      GroupType       `json:"type" yaml:"type"`
	Buckets   []Bucket        `json:"buckets" yaml:"buckets"`
	AppID     string          `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	AppCookie string          `json:"app_cookie,omitempty" yaml:"app_cookie,omitempty"`
}

// Member is the device-specific form of one group bucket: a member id plus
// a fully-specified action, scoped to an action profile.
type Member struct {
	Profile ActionProfileID `json:"profile"`
	ID      MemberID        `json:"id"`
	Action  Action          `json:"action"`
	Weight  int             `json:"weight,omitempty"`
}

// Equal reports whether two members are identical, weight included.
func (m Member) Equal(other Member) bool {
	return m.Profile == other.Profile && m.ID == other.ID &&
		m.Weight == other.Weight && m.Action.Equal(other.Action)
}

// Group is the device-specific form of a group: an action profile entry
// referencing a set of members. Member order is not significant.
type Group struct {
	Profile ActionProfileID `json:"profile"`
	ID      GroupID         `json:"id"`
	Members []Member        `json:"members"`
}

// Equal reports whether two translated groups are identical. Members are
// compared as an unordered set keyed by member id.
func (g Group) Equal(other Group) bool {
	if g.Profile != other.Profile || g.ID != other.ID || len(g.Members) != len(other.Members) {
		return false
	}
	byID := make(map[MemberID]Member, len(other.Members))
	for _, m := range other.Members {
		byID[m.ID] = m
	}
	for _, m := range g.Members {
		o, ok := byID[m.ID]
		if !ok || !m.Equal(o) {
			return false
		}
	}
	return true
}

func (g Group) String() string {
	return fmt.Sprintf("%s/group-%d", g.Profile, g.ID)
}

// dummyActionID marks a member reconstructed from a device dump that
// returned identities only. Such placeholders are never written to the
// device; apply always sends the caller-supplied action.
const dummyActionID ActionID = "dummy"

// DummyMember builds an identity-only placeholder for the member mirror.
// The device dump protocol does not return member actions or weights, so
// the mirror stores this marker form when membership is reconstructed from
// identities alone. Callers needing full attributes must consult the
// translation store.
func DummyMember(profile ActionProfileID, id MemberID) Member {
	return Member{
		Profile: profile,
		ID:      id,
		Action:  Action{ID: dummyActionID},
	}
}
