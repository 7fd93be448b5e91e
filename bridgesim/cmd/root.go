// Package cmd provides the command-line interface of bridgesim.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bridgesim/config"
)

// NewRootCmd creates the bridgesim command with all its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bridgesim",
		Short: "Simulate nodes talking through learning bridges.",
		Long: `bridgesim connects nodes to one switch per network and the ` +
			`switches to a hub, then lets every node deliver its messages ` +
			`reliably over lossy links.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", ".",
		"directory holding firewall.txt and the node message files")

	root.AddCommand(newRunCmd(), newGenerateCmd())

	return root
}

// Execute runs the command line and exits through atexit so that the
// registered flushes happen.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func parseCounts(args []string) (nodes, networks int, err error) {
	nodes, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number of nodes %q", args[0])
	}

	networks, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number of networks %q", args[1])
	}

	if nodes < 1 || nodes > config.MaxNodes {
		return 0, 0, fmt.Errorf("nodes must be within 1..%d", config.MaxNodes)
	}

	if networks < 1 || networks > config.MaxNetworks {
		return 0, 0, fmt.Errorf(
			"networks must be within 1..%d", config.MaxNetworks)
	}

	return nodes, networks, nil
}

func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
