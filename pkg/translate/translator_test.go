package translate

import (
	"errors"
	"testing"

	"github.com/grouplane-network/grouplane/pkg/model"
	"github.com/grouplane-network/grouplane/pkg/pipeline"
	"github.com/grouplane-network/grouplane/pkg/util"
)

func testPipeline() *pipeline.Model {
	return &pipeline.Model{
		Name: "fabric",
		ActionProfiles: []pipeline.ActionProfile{
			{
				ID:      "ecmp_selector",
				MaxSize: 4,
				Actions: []model.ActionID{"set_next_hop", "drop"},
			},
		},
	}
}

func newTranslator() *GroupTranslator {
	return New(testPipeline(), NewMemoryStore())
}

func bucket(action model.ActionID, weight int, params map[string]string) model.Bucket {
	return model.Bucket{Action: model.Action{ID: action, Params: params}, Weight: weight}
}

func desc(buckets ...model.Bucket) model.GroupDesc {
	return model.GroupDesc{
		Device:  "leaf1",
		Profile: "ecmp_selector",
		ID:      1,
		Type:    model.GroupTypeSelect,
		Buckets: buckets,
	}
}

func TestTranslate(t *testing.T) {
	tr := newTranslator()
	g, err := tr.Translate(desc(
		bucket("set_next_hop", 1, map[string]string{"port": "0x01"}),
		bucket("set_next_hop", 2, map[string]string{"port": "0x02"}),
	))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if g.Profile != "ecmp_selector" || g.ID != 1 {
		t.Errorf("identity = %s/%d", g.Profile, g.ID)
	}
	if len(g.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(g.Members))
	}
	if g.Members[0].ID == g.Members[1].ID {
		t.Error("distinct buckets mapped to the same member id")
	}
	if g.Members[0].Weight != 1 || g.Members[1].Weight != 2 {
		t.Errorf("weights = %d, %d", g.Members[0].Weight, g.Members[1].Weight)
	}
	for _, m := range g.Members {
		if m.ID == 0 {
			t.Error("zero member id")
		}
		if m.Profile != "ecmp_selector" {
			t.Errorf("member profile = %s", m.Profile)
		}
	}
}

func TestTranslate_Deterministic(t *testing.T) {
	tr := newTranslator()
	d := desc(bucket("set_next_hop", 1, map[string]string{"port": "0x01", "vlan": "0x64"}))
	first, err := tr.Translate(d)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	second, err := tr.Translate(d)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("re-translation differs: %v vs %v", first, second)
	}

	// Same bucket content in a different group yields the same member id:
	// members are shareable across groups.
	other := desc(bucket("set_next_hop", 1, map[string]string{"vlan": "0x64", "port": "0x01"}))
	other.ID = 2
	third, err := tr.Translate(other)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if third.Members[0].ID != first.Members[0].ID {
		t.Errorf("member id changed across groups: %d vs %d", third.Members[0].ID, first.Members[0].ID)
	}
}

func TestTranslate_WeightDefaultsToOne(t *testing.T) {
	tr := newTranslator()
	g, err := tr.Translate(desc(bucket("drop", 0, nil)))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if g.Members[0].Weight != 1 {
		t.Errorf("weight = %d, want 1", g.Members[0].Weight)
	}

	// A zero-weight bucket and an explicit weight-1 bucket are the same
	// member.
	h, err := tr.Translate(desc(bucket("drop", 1, nil)))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if g.Members[0].ID != h.Members[0].ID {
		t.Errorf("member ids differ: %d vs %d", g.Members[0].ID, h.Members[0].ID)
	}
}

func TestTranslate_FoldsIdenticalBuckets(t *testing.T) {
	tr := newTranslator()
	b := bucket("set_next_hop", 1, map[string]string{"port": "0x01"})
	g, err := tr.Translate(desc(b, b))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(g.Members) != 1 {
		t.Errorf("members = %d, want 1 (identical buckets fold)", len(g.Members))
	}
}

func TestTranslate_Errors(t *testing.T) {
	tr := newTranslator()

	cases := []struct {
		name string
		d    model.GroupDesc
	}{
		{"unknown profile", func() model.GroupDesc {
			d := desc(bucket("drop", 1, nil))
			d.Profile = "no_such_profile"
			return d
		}()},
		{"replication type", func() model.GroupDesc {
			d := desc(bucket("drop", 1, nil))
			d.Type = model.GroupTypeAll
			return d
		}()},
		{"no buckets", desc()},
		{"unknown action", desc(bucket("no_such_action", 1, nil))},
		{"exceeds max size", desc(
			bucket("set_next_hop", 1, map[string]string{"port": "0x01"}),
			bucket("set_next_hop", 1, map[string]string{"port": "0x02"}),
			bucket("set_next_hop", 1, map[string]string{"port": "0x03"}),
			bucket("set_next_hop", 1, map[string]string{"port": "0x04"}),
			bucket("set_next_hop", 1, map[string]string{"port": "0x05"}),
		)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tr.Translate(tc.d)
			if err == nil {
				t.Fatal("Translate succeeded, want error")
			}
			if !errors.Is(err, util.ErrTranslationFailed) {
				t.Errorf("error = %v, want ErrTranslationFailed", err)
			}
		})
	}
}

func TestLearnLookupForget(t *testing.T) {
	tr := newTranslator()
	d := desc(bucket("drop", 1, nil))
	g, err := tr.Translate(d)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	rec := Record{Device: "leaf1", Original: d, Translated: g}
	h := rec.Handle()

	if _, ok := tr.Lookup(h); ok {
		t.Fatal("Lookup found a record before Learn")
	}
	tr.Learn(rec)
	got, ok := tr.Lookup(h)
	if !ok {
		t.Fatal("record missing after Learn")
	}
	if !got.Translated.Equal(g) {
		t.Errorf("Translated = %v, want %v", got.Translated, g)
	}
	if got.Original.Profile != d.Profile || got.Original.ID != d.ID {
		t.Errorf("Original = %v", got.Original)
	}

	// Learn replaces.
	d2 := d
	d2.AppID = "other-app"
	tr.Learn(Record{Device: "leaf1", Original: d2, Translated: g})
	got, _ = tr.Lookup(h)
	if got.Original.AppID != "other-app" {
		t.Error("Learn did not replace the record")
	}

	tr.Forget(h)
	if _, ok := tr.Lookup(h); ok {
		t.Error("record still present after Forget")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	s.Put("k", Record{Device: "leaf1"})
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	r, ok := s.Get("k")
	if !ok || r.Device != "leaf1" {
		t.Errorf("Get = %v, %v", r, ok)
	}
	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Error("record still present after Delete")
	}
	s.Delete("k") // deleting a missing key is fine
}
