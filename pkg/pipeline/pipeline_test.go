package pipeline

import (
	"errors"
	"testing"

	"github.com/grouplane-network/grouplane/pkg/model"
	"github.com/grouplane-network/grouplane/pkg/util"
)

const testYAML = `
name: fabric
action_profiles:
  - id: ecmp_selector
    tables: [routing_v4, routing_v6]
    max_size: 16
    actions: [set_next_hop, drop]
  - id: lag_selector
    actions: [set_egress_port]
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Name != "fabric" {
		t.Errorf("Name = %q, want fabric", m.Name)
	}
	ids := m.ProfileIDs()
	if len(ids) != 2 || ids[0] != "ecmp_selector" || ids[1] != "lag_selector" {
		t.Errorf("ProfileIDs = %v", ids)
	}

	p, ok := m.Profile("ecmp_selector")
	if !ok {
		t.Fatal("Profile(ecmp_selector) not found")
	}
	if p.MaxSize != 16 || len(p.Tables) != 2 {
		t.Errorf("profile = %+v", p)
	}
	if !p.HasAction("drop") {
		t.Error("HasAction(drop) = false")
	}
	if p.HasAction("set_egress_port") {
		t.Error("HasAction accepted an action of another profile")
	}

	if _, ok := m.Profile("no_such"); ok {
		t.Error("Profile(no_such) found")
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"not yaml", "{{"},
		{"missing name", "action_profiles: [{id: p, actions: [a]}]"},
		{"no profiles", "name: fabric"},
		{"empty profile id", "name: fabric\naction_profiles: [{actions: [a]}]"},
		{"duplicate profile", "name: fabric\naction_profiles: [{id: p, actions: [a]}, {id: p, actions: [a]}]"},
		{"no actions", "name: fabric\naction_profiles: [{id: p}]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestValidate_ErrorKind(t *testing.T) {
	m := &Model{Name: "fabric"}
	err := m.Validate()
	if err == nil {
		t.Fatal("Validate succeeded, want error")
	}
	if !errors.Is(err, util.ErrInvalidPipeline) {
		t.Errorf("error = %v, want ErrInvalidPipeline", err)
	}
}

func TestValidate_OK(t *testing.T) {
	m := &Model{
		Name: "fabric",
		ActionProfiles: []ActionProfile{
			{ID: "p", Actions: []model.ActionID{"a"}},
		},
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}
