package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grouplane-network/grouplane/pkg/driver"
	"github.com/grouplane-network/grouplane/pkg/model"
)

// groupFile is the YAML document accepted by apply/remove.
type groupFile struct {
	Groups []model.GroupDesc `yaml:"groups"`
}

func loadGroupFile(path string) ([]model.GroupDesc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading group file: %w", err)
	}
	var f groupFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing group file: %w", err)
	}
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("group file %s defines no groups", path)
	}
	return f.Groups, nil
}

func runBatch(cmd *cobra.Command, path string, op model.ChangeOp) error {
	descs, err := loadGroupFile(path)
	if err != nil {
		return err
	}
	changes := make([]driver.GroupChange, 0, len(descs))
	for _, desc := range descs {
		changes = append(changes, driver.GroupChange{Desc: desc, Op: op})
	}

	results := drv.PerformOperation(cmd.Context(), model.DeviceID(deviceName), changes)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("FAIL  %s/group-%d (%s): %v\n", r.Profile, r.Group, r.Op, r.Err)
		} else {
			fmt.Printf("OK    %s/group-%d (%s)\n", r.Profile, r.Group, r.Op)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d changes failed", failed, len(results))
	}
	return nil
}

var applyCmd = &cobra.Command{
	Use:   "apply <groups.yaml>",
	Short: "Apply group descriptions from a YAML file",
	Long: `Apply programs every group in the file: members first, then the group.
A group is applied completely or not at all; on partial failure the
already-written members are rolled back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args[0], model.ChangeOpAdd)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <groups.yaml>",
	Short: "Remove group descriptions from a YAML file",
	Long: `Remove deletes every group in the file from the device. Members are left
in place, since they may be shared by other groups, and are reclaimed by
reconciliation once unreferenced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args[0], model.ChangeOpDelete)
	},
}
