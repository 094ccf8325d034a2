// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/coordinator"
	"github.com/vle-kernel/vle/devs/extensions"
	"github.com/vle-kernel/vle/devs/loader"
	"github.com/vle-kernel/vle/devs/output"
	"github.com/vle-kernel/vle/devs/scenario"
	"github.com/vle-kernel/vle/devs/view"
)

var (
	writeOutputPath string
	quiet           bool
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "vle",
	Short: "DEVS discrete-event simulation kernel",
}

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Batch-run a scenario to completion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		switch {
		case verbose:
			logrus.SetLevel(logrus.DebugLevel)
		case quiet:
			logrus.SetLevel(logrus.ErrorLevel)
		default:
			logrus.SetLevel(logrus.InfoLevel)
		}

		if err := run(args[0], writeOutputPath); err != nil {
			logrus.WithError(err).Error("run failed")
			os.Exit(1)
		}
		logrus.Info("run complete")
	},
}

// run loads scenarioPath, registers the reference extension library,
// builds and executes a Coordinator, and optionally writes aggregated
// plug-in output to writeOutputPath (spec §6.4).
func run(scenarioPath, writeOutputPath string) error {
	doc, err := scenario.Load(scenarioPath)
	if err != nil {
		return fmt.Errorf("loading scenario: %w", err)
	}

	g, initValues, err := scenario.Build(doc)
	if err != nil {
		return fmt.Errorf("building model graph: %w", err)
	}

	reg := loader.NewRegistry()
	extensions.Register(reg)
	defer reg.Unload()

	views := view.NewRegistry()
	console := output.NewConsolePlugin(logrus.StandardLogger())
	var csvFile *os.File
	if writeOutputPath != "" {
		csvFile, err = os.Create(writeOutputPath)
		if err != nil {
			return fmt.Errorf("opening --write-output path: %w", err)
		}
		defer csvFile.Close()
	}

	tBegin := devs.FromTicks(doc.Experiment.Begin)
	tEnd := devs.FromTicks(doc.Experiment.Begin + doc.Experiment.Duration)

	co := coordinator.New(g, reg, views, tBegin, tEnd)
	if err := co.InitializeAll(initValues); err != nil {
		return fmt.Errorf("initializing simulators: %w", err)
	}

	// Views bind to *simulator.Simulator instances, which only exist once
	// InitializeAll has built them, so binding happens here rather than
	// before InitializeAll.
	for _, vd := range doc.Views {
		v, err := buildView(co, vd, console, csvFile)
		if err != nil {
			return fmt.Errorf("binding view %q: %w", vd.Name, err)
		}
		views.Add(v, nil)
	}

	return co.Run()
}

func buildView(co *coordinator.Coordinator, vd scenario.ViewDef, console *output.ConsolePlugin, csvFile *os.File) (*view.View, error) {
	var kind view.Kind
	switch vd.Kind {
	case "event":
		kind = view.Event
	case "finish":
		kind = view.Finish
	default:
		kind = view.Timed
	}
	v := &view.View{Name: vd.Name, Kind: kind, Step: devs.FromTicks(vd.Step)}
	v.Plugins = append(v.Plugins, console)
	if csvFile != nil {
		v.Plugins = append(v.Plugins, output.NewCSVPlugin(csvFile))
	}
	for _, b := range vd.Bindings {
		sim, err := co.SimulatorAt(b.Model)
		if err != nil {
			return nil, err
		}
		v.Bind(sim, b.Port)
	}
	return v, nil
}

// Execute runs the root command, exiting non-zero on error (spec §6.4).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&writeOutputPath, "write-output", "", "additionally write aggregated outputs to this path")
	runCmd.Flags().BoolVar(&quiet, "quiet", false, "only log errors")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "log at debug level")

	rootCmd.AddCommand(runCmd)
}
