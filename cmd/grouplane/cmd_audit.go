package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grouplane-network/grouplane/pkg/audit"
)

var (
	auditOp       string
	auditLimit    int
	auditFailures bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail of group operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := audit.Query(audit.Filter{
			Device:      deviceName,
			Operation:   auditOp,
			FailureOnly: auditFailures,
			Limit:       auditLimit,
		})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No audit events")
			return nil
		}
		for _, e := range events {
			status := "OK"
			if !e.Success {
				status = "FAIL"
			}
			fmt.Printf("%s  %-5s %-7s %-32s members=%d %s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), status, e.Operation,
				e.Group, e.Members, e.Error)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditOp, "op", "", "Filter by operation (apply, remove, cleanup)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Max events to show (most recent)")
	auditCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")
}
