package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/grouplane-network/grouplane/pkg/model"
)

var jsonOutput bool

const timeRound = time.Second

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show reconciled groups on the device",
	Long: `Show lists the action-profile groups on the device that are consistent
with controller bookkeeping. Groups found on the device but unknown to the
translation store are excluded and scheduled for background cleanup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := drv.GetGroups(cmd.Context(), model.DeviceID(deviceName))
		if err != nil {
			return err
		}

		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Desc.Profile != entries[j].Desc.Profile {
				return entries[i].Desc.Profile < entries[j].Desc.Profile
			}
			return entries[i].Desc.ID < entries[j].Desc.ID
		})

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Println("No groups")
			return nil
		}
		fmt.Printf("%-24s %-10s %-8s %-8s %s\n", "PROFILE", "GROUP", "TYPE", "STATE", "AGE")
		for _, e := range entries {
			fmt.Printf("%-24s %-10d %-8s %-8s %s\n",
				e.Desc.Profile, e.Desc.ID, e.Desc.Type, e.State, e.Life.Round(timeRound))
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
}
