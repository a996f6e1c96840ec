package mirror

import (
	"testing"

	"github.com/grouplane-network/grouplane/pkg/model"
)

func newGroupMirror() *Mirror[model.GroupHandle, model.Group] {
	return New[model.GroupHandle](model.Group.Equal)
}

func testGroup(id model.GroupID, memberIDs ...model.MemberID) model.Group {
	g := model.Group{Profile: "ecmp_selector", ID: id}
	for _, mid := range memberIDs {
		g.Members = append(g.Members, model.Member{
			Profile: "ecmp_selector", ID: mid, Action: model.Action{ID: "drop"}, Weight: 1,
		})
	}
	return g
}

func handle(device model.DeviceID, g model.Group) model.GroupHandle {
	return model.NewGroupHandle(device, g)
}

func TestPutGetRemove(t *testing.T) {
	m := newGroupMirror()
	g := testGroup(1, 10, 11)
	h := handle("leaf1", g)

	if _, ok := m.Get(h); ok {
		t.Fatal("Get on empty mirror returned an entry")
	}
	m.Put(h, g)
	e, ok := m.Get(h)
	if !ok {
		t.Fatal("entry missing after Put")
	}
	if !e.Value.Equal(g) {
		t.Errorf("Value = %v, want %v", e.Value, g)
	}
	if e.Added.IsZero() {
		t.Error("Added timestamp not set")
	}
	m.Remove(h)
	if _, ok := m.Get(h); ok {
		t.Error("entry still present after Remove")
	}
}

func TestGetAll_FiltersByDevice(t *testing.T) {
	m := newGroupMirror()
	g1, g2 := testGroup(1), testGroup(2)
	m.Put(handle("leaf1", g1), g1)
	m.Put(handle("leaf1", g2), g2)
	m.Put(handle("leaf2", g1), g1)

	all := m.GetAll("leaf1")
	if len(all) != 2 {
		t.Fatalf("GetAll(leaf1) = %d entries, want 2", len(all))
	}
	for h := range all {
		if h.Device() != "leaf1" {
			t.Errorf("entry for device %s in leaf1 result", h.Device())
		}
	}
}

func TestSync_AddsAndDrops(t *testing.T) {
	m := newGroupMirror()
	stale := testGroup(1)
	m.Put(handle("leaf1", stale), stale)

	fresh := testGroup(2)
	m.Sync("leaf1", map[model.GroupHandle]model.Group{
		handle("leaf1", fresh): fresh,
	})

	if _, ok := m.Get(handle("leaf1", stale)); ok {
		t.Error("entry absent from sync set not dropped")
	}
	if _, ok := m.Get(handle("leaf1", fresh)); !ok {
		t.Error("synced entry not added")
	}
}

func TestSync_PreservesTimestampWhenUnchanged(t *testing.T) {
	m := newGroupMirror()
	g := testGroup(1, 10)
	h := handle("leaf1", g)
	m.Put(h, g)
	before, _ := m.Get(h)

	// Equal value, different member order: timestamp must survive.
	same := testGroup(1, 10)
	m.Sync("leaf1", map[model.GroupHandle]model.Group{h: same})
	after, _ := m.Get(h)
	if !after.Added.Equal(before.Added) {
		t.Error("timestamp not preserved for unchanged value")
	}

	// Changed value: timestamp must be refreshed.
	changed := testGroup(1, 10, 11)
	m.Sync("leaf1", map[model.GroupHandle]model.Group{h: changed})
	after, _ = m.Get(h)
	if after.Added.Equal(before.Added) {
		t.Error("timestamp not refreshed for changed value")
	}
	if !after.Value.Equal(changed) {
		t.Errorf("Value = %v, want %v", after.Value, changed)
	}
}

func TestSync_LeavesOtherDevicesAlone(t *testing.T) {
	m := newGroupMirror()
	g := testGroup(1)
	m.Put(handle("leaf2", g), g)

	m.Sync("leaf1", map[model.GroupHandle]model.Group{})

	if _, ok := m.Get(handle("leaf2", g)); !ok {
		t.Error("sync of leaf1 dropped leaf2 entry")
	}
}
