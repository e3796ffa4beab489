// Command gaitrl runs agents on muscle-actuated gait environments and
// inspects their configuration.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Environment variables read by the CLI. Both may be set in a .env file
// in the working directory.
const (
	ConfigEnv = "GAITRL_CONFIG"
	DataEnv   = "GAITRL_DATA"
)

type options struct {
	logLevel    string
	logFormat   string
	metricsAddr string
	config      string
	data        string
}

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "gaitrl",
		Short:        "reinforcement learning on muscle-actuated gait models",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text",
		"log format (text, json)")
	flags.StringVar(&opts.config, "config", os.Getenv(ConfigEnv),
		"experiment config file (yaml), defaults to $"+ConfigEnv)
	flags.StringVar(&opts.data, "data", envOr(DataEnv, "data"),
		"directory that tracked data is saved to, defaults to $"+DataEnv)

	rootCmd.AddCommand(
		newRunCmd(opts),
		newInspectCmd(opts),
		newConfigCmd(opts),
		newSummarizeCmd(),
	)
	return rootCmd
}

// logger returns the logger described by the options, writing to w
func (o *options) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(o.logFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("logger: no such log format %q", o.logFormat)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
