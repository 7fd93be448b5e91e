package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/bridgesim/config"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <nodes> <networks>",
		Short: "Write a configuration in which every node greets every other node.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, networks, err := parseCounts(args)
			if err != nil {
				return err
			}

			dir, _ := cmd.Flags().GetString("config")

			err = config.GenerateDemo(dir, nodes, networks)
			if err != nil {
				return err
			}

			cmd.Printf("Wrote the configuration of %d nodes into %s\n",
				nodes, dir)

			return nil
		},
	}
}
