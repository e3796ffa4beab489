package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/gaitrl/environment/envconfig"
	"github.com/samuelfneumann/gaitrl/experiment"
	"github.com/samuelfneumann/gaitrl/experiment/tracker"
	"github.com/samuelfneumann/gaitrl/experiment/trackers"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		task  string
		steps int
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run an agent online and save the tracked data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			c, err := opts.experimentConfig(envconfig.TaskName(task))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("steps") {
				c.MaxSteps = steps
			}
			if cmd.Flags().Changed("seed") {
				c.Seed = seed
			}

			reg := prometheus.NewRegistry()
			if opts.metricsAddr != "" {
				serveMetrics(opts.metricsAddr, reg, logger)
			}

			if err := os.MkdirAll(opts.data, 0o755); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			exp, err := c.CreateExp(logger, reg, trackers.NewReturn(),
				trackers.NewEpisodeLength())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			if err := exp.Run(); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			files, err := exp.Save(opts.data)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&task, "task", string(envconfig.Smooth),
		"task preset used when no config file is given")
	cmd.Flags().IntVar(&steps, "steps", 0, "maximum number of steps")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "agent seed")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "",
		"address to serve prometheus metrics on, disabled if empty")
	return cmd
}

func newInspectCmd(opts *options) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "describe the model and observations of an environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			c, err := opts.experimentConfig(envconfig.TaskName(task))
			if err != nil {
				return err
			}
			env, err := c.Env.Create(logger)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}

			model := env.Model()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "model\t%v\n", model.Name())
			fmt.Fprintf(w, "task\t%v\n", env.Task())
			fmt.Fprintf(w, "actions\t%v\n", env.ActionSpec().Shape.Len())
			fmt.Fprintf(w, "observations\t%v\n",
				env.ObservationSpec().Shape.Len())

			fmt.Fprintln(w, "\nbody\tmass")
			for _, b := range model.Bodies() {
				fmt.Fprintf(w, "%v\t%.3f\n", b.Name, b.Mass)
			}

			fmt.Fprintln(w, "\njoint\tkind\tparent\tchild\tcoordinates")
			for _, j := range model.Joints() {
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", j.Name, j.Kind,
					j.Parent, j.Child, j.Coordinates)
			}

			fmt.Fprintln(w, "\nindex\tobservation")
			for i, f := range env.Layout() {
				fmt.Fprintf(w, "%v\t%v\n", i, f)
			}

			fmt.Fprintln(w, "\nindex\tactuator")
			for i, a := range model.Actuators() {
				fmt.Fprintf(w, "%v\t%v\n", i, a)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&task, "task", string(envconfig.Smooth),
		"task preset used when no config file is given")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the experiment config of a task preset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := experiment.DefaultConfig(envconfig.TaskName(task))
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(c)
		},
	}

	cmd.Flags().StringVar(&task, "task", string(envconfig.Smooth),
		"task preset")
	return cmd
}

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [file]...",
		Short: "summarize data saved by the run command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "file\tepisodes\tmean\tstd\tmin\tmax")
			for _, file := range args {
				data, err := loadFloats(file)
				if err != nil {
					return err
				}
				if len(data) == 0 {
					fmt.Fprintf(w, "%v\t0\t-\t-\t-\t-\n", file)
					continue
				}

				mean, std := stat.MeanStdDev(data, nil)
				fmt.Fprintf(w, "%v\t%v\t%.4f\t%.4f\t%.4f\t%.4f\n", file,
					len(data), mean, std, floats.Min(data), floats.Max(data))
			}
			return w.Flush()
		},
	}
}

// loadFloats loads the data saved by a Tracker. Episode lengths are
// saved as integers and all other data as floats.
func loadFloats(file string) ([]float64, error) {
	if !strings.HasSuffix(file, "_"+trackers.NewEpisodeLength().Name()+
		".gob") {
		return tracker.LoadData[float64](file)
	}

	lengths, err := tracker.LoadData[int](file)
	if err != nil {
		return nil, err
	}
	data := make([]float64, len(lengths))
	for i, l := range lengths {
		data[i] = float64(l)
	}
	return data, nil
}

// experimentConfig loads the experiment config file if one is given,
// and otherwise returns the default config of the task preset
func (o *options) experimentConfig(task envconfig.TaskName) (experiment.Config,
	error) {
	if o.config == "" {
		return experiment.DefaultConfig(task)
	}
	return experiment.LoadConfig(o.config)
}

// serveMetrics serves the metrics registered with reg in the background
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		logger.Info("serving metrics", "addr", addr)
		err := http.ListenAndServe(addr, mux)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}
