// Package pipeline describes the forwarding pipeline the driver programs
// against: which action profiles exist and which actions they accept. The
// model is static per pipeline; enumerating it never touches the device.
package pipeline

import (
	"fmt"

	"github.com/grouplane-network/grouplane/pkg/model"
	"github.com/grouplane-network/grouplane/pkg/util"
)

// Param describes one runtime parameter of an action.
type Param struct {
	Name  string `yaml:"name" json:"name"`
	Width int    `yaml:"width" json:"width"` // bits
}

// Action describes an action available to action profile members.
type Action struct {
	ID     model.ActionID `yaml:"id" json:"id"`
	Params []Param        `yaml:"params,omitempty" json:"params,omitempty"`
}

// ActionProfile describes one action profile of the pipeline.
type ActionProfile struct {
	ID      model.ActionProfileID `yaml:"id" json:"id"`
	Tables  []string              `yaml:"tables,omitempty" json:"tables,omitempty"`
	MaxSize int                   `yaml:"max_size,omitempty" json:"max_size,omitempty"`
	Actions []model.ActionID      `yaml:"actions" json:"actions"`
}

// Model is the pipeline metadata for one device family.
type Model struct {
	Name           string          `yaml:"name" json:"name"`
	ActionProfiles []ActionProfile `yaml:"action_profiles" json:"action_profiles"`
}

// ProfileIDs enumerates the ids of all action profiles in the pipeline.
func (m *Model) ProfileIDs() []model.ActionProfileID {
	ids := make([]model.ActionProfileID, 0, len(m.ActionProfiles))
	for _, p := range m.ActionProfiles {
		ids = append(ids, p.ID)
	}
	return ids
}

// Profile returns the action profile with the given id.
func (m *Model) Profile(id model.ActionProfileID) (*ActionProfile, bool) {
	for i := range m.ActionProfiles {
		if m.ActionProfiles[i].ID == id {
			return &m.ActionProfiles[i], true
		}
	}
	return nil, false
}

// HasAction reports whether the profile accepts the given action.
func (p *ActionProfile) HasAction(id model.ActionID) bool {
	for _, a := range p.Actions {
		if a == id {
			return true
		}
	}
	return false
}

// Validate checks the model for internal consistency.
func (m *Model) Validate() error {
	if m.Name == "" {
		return util.NewPipelineError("(unnamed)", "missing name")
	}
	if len(m.ActionProfiles) == 0 {
		return util.NewPipelineError(m.Name, "no action profiles defined")
	}
	seen := make(map[model.ActionProfileID]bool)
	for _, p := range m.ActionProfiles {
		if p.ID == "" {
			return util.NewPipelineError(m.Name, "action profile with empty id")
		}
		if seen[p.ID] {
			return util.NewPipelineError(m.Name, fmt.Sprintf("duplicate action profile %q", p.ID))
		}
		seen[p.ID] = true
		if len(p.Actions) == 0 {
			return util.NewPipelineError(m.Name, fmt.Sprintf("action profile %q accepts no actions", p.ID))
		}
	}
	return nil
}
