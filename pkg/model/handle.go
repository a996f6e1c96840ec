package model

import "fmt"

// GroupHandle is the stable identity of a group on a device. Handles are
// plain comparable values: two handles are equal iff their device, profile
// and group id are equal. The same logical group always yields the same
// handle, which makes handles usable as mirror keys, lock keys and
// translation-store keys.
type GroupHandle struct {
	device  DeviceID
	profile ActionProfileID
	group   GroupID
}

// NewGroupHandle computes the handle for a translated group on a device.
func NewGroupHandle(device DeviceID, g Group) GroupHandle {
	return GroupHandle{device: device, profile: g.Profile, group: g.ID}
}

// Device returns the device the handle is scoped to.
func (h GroupHandle) Device() DeviceID { return h.device }

// Profile returns the action profile the group belongs to.
func (h GroupHandle) Profile() ActionProfileID { return h.profile }

// GroupID returns the group id.
func (h GroupHandle) GroupID() GroupID { return h.group }

// Key returns a deterministic string form, used for lock striping.
func (h GroupHandle) Key() string {
	return fmt.Sprintf("%s/%s/group-%d", h.device, h.profile, h.group)
}

func (h GroupHandle) String() string { return h.Key() }

// MemberHandle is the stable identity of an action profile member on a
// device. Same equality contract as GroupHandle.
type MemberHandle struct {
	device  DeviceID
	profile ActionProfileID
	member  MemberID
}

// NewMemberHandle computes the handle for a translated member on a device.
func NewMemberHandle(device DeviceID, m Member) MemberHandle {
	return MemberHandle{device: device, profile: m.Profile, member: m.ID}
}

// MemberHandleOf builds a member handle from bare identities, as returned
// by a device dump.
func MemberHandleOf(device DeviceID, profile ActionProfileID, id MemberID) MemberHandle {
	return MemberHandle{device: device, profile: profile, member: id}
}

// Device returns the device the handle is scoped to.
func (h MemberHandle) Device() DeviceID { return h.device }

// Profile returns the action profile the member belongs to.
func (h MemberHandle) Profile() ActionProfileID { return h.profile }

// MemberID returns the member id.
func (h MemberHandle) MemberID() MemberID { return h.member }

// Key returns a deterministic string form, used for lock striping.
func (h MemberHandle) Key() string {
	return fmt.Sprintf("%s/%s/member-%d", h.device, h.profile, h.member)
}

func (h MemberHandle) String() string { return h.Key() }
