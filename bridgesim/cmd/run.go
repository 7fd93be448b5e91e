package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sarchlab/bridgesim/config"
	"github.com/sarchlab/bridgesim/simulation"
)

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run <nodes> <networks>",
		Short: "Run a simulation until every message is acknowledged.",
		Long: `Run builds the topology, sends the messages listed in the ` +
			`node files of the config directory, and writes what every node ` +
			`received into node<net>_<id>output.txt.`,
		Args: cobra.ExactArgs(2),
		RunE: runSimulation,
	}

	c.Flags().String("params", "", "YAML file with simulation parameters")
	c.Flags().String("env", ".env", "file with BRIDGESIM_* variables")
	c.Flags().String("out", "", "directory of the output files")
	c.Flags().String("record", "",
		"record deliveries and traces into this SQLite file (without suffix)")
	c.Flags().Bool("monitor", false, "serve the monitoring web page")
	c.Flags().Int("monitor-port", 0, "port of the monitoring server")
	c.Flags().Bool("open-browser", false, "open the monitoring page")
	c.Flags().Bool("log", false, "log every device event to stderr")

	return c
}

func loadParams(cmd *cobra.Command, args []string) (config.Params, error) {
	params := config.DefaultParams()

	envFile, _ := cmd.Flags().GetString("env")
	if err := config.LoadEnv(envFile); err != nil {
		return params, err
	}

	paramsFile, _ := cmd.Flags().GetString("params")
	if paramsFile != "" {
		p, err := config.LoadParams(paramsFile)
		if err != nil {
			return params, err
		}

		params = p
	}

	if err := params.ApplyEnv(); err != nil {
		return params, err
	}

	nodes, networks, err := parseCounts(args)
	if err != nil {
		return params, err
	}

	params.Nodes = nodes
	params.Networks = networks

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		params.OutputDir = out
	}

	if record, _ := cmd.Flags().GetString("record"); record != "" {
		params.RecordPath = record
	}

	if cmd.Flags().Changed("monitor-port") {
		params.MonitorPort, _ = cmd.Flags().GetInt("monitor-port")
	}

	return params, params.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	params, err := loadParams(cmd, args)
	if err != nil {
		return err
	}

	dir, _ := cmd.Flags().GetString("config")

	b := simulation.MakeBuilder().
		WithParams(params).
		WithSource(config.NewDirSource(dir))

	if params.RecordPath != "" {
		b = b.WithRecording()
	}

	monitor, _ := cmd.Flags().GetBool("monitor")
	openBrowser, _ := cmd.Flags().GetBool("open-browser")

	if monitor || openBrowser {
		b = b.WithMonitor()
	}

	if openBrowser {
		b = b.WithBrowser()
	}

	if verbose, _ := cmd.Flags().GetBool("log"); verbose {
		b = b.WithFrameLogger(log.New(os.Stderr, "", log.Lmicroseconds))
	}

	s, err := b.Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	ctx, stop := signal.NotifyContext(
		cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = s.Run(ctx)
	s.Report()

	if errors.Is(err, context.Canceled) {
		warn("Simulation interrupted")
	}

	return err
}
