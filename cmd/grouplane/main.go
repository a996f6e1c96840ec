// Grouplane - Action Profile Group Programmer
//
// A CLI for programming action-profile groups (and their members) on a
// forwarding device through its agent DB, with local mirrors reconciled
// against live device state.
//
//	grouplane -d <device> --pipeline <model.yaml> <verb> [args]
//
// Verbs:
//
//	show       - Reconciled groups on the device (only state consistent
//	             with controller bookkeeping is shown)
//	apply      - Apply group descriptions from a YAML file
//	remove     - Remove group descriptions from a YAML file
//	audit      - Query the audit trail of apply/remove outcomes
//	version    - Print version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grouplane-network/grouplane/pkg/audit"
	"github.com/grouplane-network/grouplane/pkg/driver"
	"github.com/grouplane-network/grouplane/pkg/gateway"
	"github.com/grouplane-network/grouplane/pkg/model"
	"github.com/grouplane-network/grouplane/pkg/pipeline"
	"github.com/grouplane-network/grouplane/pkg/translate"
	"github.com/grouplane-network/grouplane/pkg/util"
	"github.com/grouplane-network/grouplane/pkg/version"
)

var (
	// Context flags
	deviceName   string // -d, --device
	pipelinePath string // --pipeline

	// Agent access flags
	agentAddr string
	agentDB   int
	sshHost   string
	sshUser   string
	sshPass   string

	// Option flags
	storeAddr  string // Redis translation store; empty = in-memory
	storeDB    int
	mirrorOnly bool
	auditPath  string
	verbose    bool

	// Global state
	pipe   *pipeline.Model
	drv    *driver.Driver
	tunnel *gateway.Tunnel
	agent  *gateway.AgentClient
)

func main() {
	defer teardown()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		teardown()
		os.Exit(1)
	}
}

func teardown() {
	if drv != nil {
		drv.Close()
		drv = nil
	}
	if agent != nil {
		agent.Close()
		agent = nil
	}
	if tunnel != nil {
		tunnel.Close()
		tunnel = nil
	}
}

var rootCmd = &cobra.Command{
	Use:               "grouplane",
	Short:             "Action Profile Group Programmer",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Grouplane programs action-profile groups on a forwarding device and
keeps controller bookkeeping consistent with live device state.

  grouplane -d <device> --pipeline <model.yaml> <verb> [args]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		if deviceName == "" {
			return fmt.Errorf("device is required: use -d <device>")
		}

		var err error
		pipe, err = pipeline.Load(pipelinePath)
		if err != nil {
			return fmt.Errorf("loading pipeline model: %w", err)
		}

		addr := agentAddr
		if sshHost != "" {
			if sshPass == "" && sshUser != "" {
				fmt.Fprintf(os.Stderr, "SSH password for %s@%s: ", sshUser, sshHost)
				pass, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("reading SSH password: %w", err)
				}
				sshPass = string(pass)
			}
			tunnel, err = gateway.NewTunnel(sshHost, sshUser, sshPass, agentAddr)
			if err != nil {
				return fmt.Errorf("SSH tunnel to %s: %w", sshHost, err)
			}
			addr = tunnel.LocalAddr()
		}

		agent = gateway.NewAgentClient(addr, agentDB)
		if err := agent.Connect(cmd.Context()); err != nil {
			return fmt.Errorf("connecting to agent DB on %s: %w", deviceName, err)
		}

		var store translate.Store
		if storeAddr != "" {
			rs := translate.NewRedisStore(storeAddr, storeDB)
			if err := rs.Connect(); err != nil {
				return fmt.Errorf("connecting to translation store: %w", err)
			}
			store = rs
		} else {
			store = translate.NewMemoryStore()
		}

		pool := gateway.NewPool()
		pool.Add(model.DeviceID(deviceName), agent)
		drv = driver.New(pool, pipe, translate.New(pipe, store), driver.Config{
			ReadFromMirror: mirrorOnly,
		})

		if auditPath != "" {
			auditLogger, err := audit.NewFileLogger(auditPath)
			if err != nil {
				util.Warnf("Could not initialize audit logging: %v", err)
			} else {
				audit.SetDefaultLogger(auditLogger)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "", "Device name")
	rootCmd.PersistentFlags().StringVar(&pipelinePath, "pipeline", "/etc/grouplane/pipeline.yaml", "Pipeline model file")
	rootCmd.PersistentFlags().StringVar(&agentAddr, "agent", "127.0.0.1:6379", "Device agent DB address")
	rootCmd.PersistentFlags().IntVar(&agentDB, "agent-db", 0, "Device agent DB number")
	rootCmd.PersistentFlags().StringVar(&sshHost, "ssh-host", "", "Reach the agent DB through an SSH tunnel to this host")
	rootCmd.PersistentFlags().StringVar(&sshUser, "ssh-user", "", "SSH user for the tunnel")
	rootCmd.PersistentFlags().StringVar(&sshPass, "ssh-pass", "", "SSH password for the tunnel (prompted if omitted)")
	rootCmd.PersistentFlags().StringVar(&storeAddr, "store", "", "Redis translation store address (default: in-memory)")
	rootCmd.PersistentFlags().IntVar(&storeDB, "store-db", 1, "Redis translation store DB number")
	rootCmd.PersistentFlags().BoolVar(&mirrorOnly, "read-from-mirror", false, "Answer show from the mirror without reconciling against the device")
	rootCmd.PersistentFlags().StringVar(&auditPath, "audit-log", "", "Audit log file (JSON lines)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("grouplane", version.Info())
	},
}
