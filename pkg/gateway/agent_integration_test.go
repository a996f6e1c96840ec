//go:build integration

package gateway

import (
	"context"
	"testing"

	"github.com/grouplane-network/grouplane/internal/testutil"
	"github.com/grouplane-network/grouplane/pkg/model"
)

// The agent tables live in their own DB so tests never touch real state.
const testAgentDB = 9

func newTestAgent(t *testing.T) *AgentClient {
	t.Helper()
	addr := testutil.RedisAddr()
	testutil.FlushDB(t, addr, testAgentDB)

	c := NewAgentClient(addr, testAgentDB)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connecting to agent DB at %s: %v", addr, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testMember(id model.MemberID) model.Member {
	return model.Member{
		Profile: "ecmp_selector",
		ID:      id,
		Action:  model.Action{ID: "set_next_hop", Params: map[string]string{"port": "0x01"}},
		Weight:  1,
	}
}

func TestAgentClient_GroupWriteSemantics(t *testing.T) {
	c := newTestAgent(t)
	ctx := context.Background()
	g := model.Group{Profile: "ecmp_selector", ID: 1, Members: []model.Member{testMember(10)}}

	if err := c.WriteGroup(ctx, g, Modify); err == nil {
		t.Error("MODIFY of a missing group succeeded")
	}
	if err := c.WriteGroup(ctx, g, Insert); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	if err := c.WriteGroup(ctx, g, Insert); err == nil {
		t.Error("second INSERT succeeded")
	}

	g.Members = append(g.Members, testMember(11))
	if err := c.WriteGroup(ctx, g, Modify); err != nil {
		t.Fatalf("MODIFY failed: %v", err)
	}

	groups, err := c.DumpGroups(ctx, "ecmp_selector")
	if err != nil {
		t.Fatalf("DumpGroups failed: %v", err)
	}
	if len(groups) != 1 || !groups[0].Equal(g) {
		t.Errorf("dump = %v, want [%v]", groups, g)
	}

	if err := c.WriteGroup(ctx, g, Delete); err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	if err := c.WriteGroup(ctx, g, Delete); err == nil {
		t.Error("second DELETE succeeded")
	}
}

func TestAgentClient_MembersAndDump(t *testing.T) {
	c := newTestAgent(t)
	ctx := context.Background()

	members := []model.Member{testMember(10), testMember(11), testMember(12)}
	if err := c.WriteMembers(ctx, members, Insert); err != nil {
		t.Fatalf("INSERT members failed: %v", err)
	}

	ids, err := c.DumpMemberIDs(ctx, "ecmp_selector")
	if err != nil {
		t.Fatalf("DumpMemberIDs failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %v, want 3 entries", ids)
	}
	seen := make(map[model.MemberID]bool)
	for _, id := range ids {
		seen[id] = true
	}
	for _, m := range members {
		if !seen[m.ID] {
			t.Errorf("member %d missing from dump", m.ID)
		}
	}

	// Other profiles are not visible.
	other, err := c.DumpMemberIDs(ctx, "lag_selector")
	if err != nil {
		t.Fatalf("DumpMemberIDs failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("dump of empty profile = %v", other)
	}
}

func TestAgentClient_RemoveMembers(t *testing.T) {
	c := newTestAgent(t)
	ctx := context.Background()

	if err := c.WriteMembers(ctx, []model.Member{testMember(10), testMember(11)}, Insert); err != nil {
		t.Fatalf("INSERT members failed: %v", err)
	}

	// One existing id, one not: only the existing one is reported removed.
	removed, err := c.RemoveMembers(ctx, "ecmp_selector", []model.MemberID{10, 99})
	if err != nil {
		t.Fatalf("RemoveMembers failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != 10 {
		t.Errorf("removed = %v, want [10]", removed)
	}

	ids, err := c.DumpMemberIDs(ctx, "ecmp_selector")
	if err != nil {
		t.Fatalf("DumpMemberIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 11 {
		t.Errorf("ids = %v, want [11]", ids)
	}

	removed, err = c.RemoveMembers(ctx, "ecmp_selector", nil)
	if err != nil {
		t.Fatalf("RemoveMembers of nothing failed: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
}
