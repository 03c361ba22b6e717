package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"promptd/internal/config"
)

// rootOptions carries persistent flag values shared by subcommands.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "promptd",
		Short:         "Local and cloud LLM text generation daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.setup()
	}

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newModelsCmd(opts))
	return root
}

// setup loads the config file (if given) and builds the process logger.
func (o *rootOptions) setup() error {
	o.cfg = config.Config{}
	if o.configPath != "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}
	o.cfg = o.cfg.WithDefaults()
	if o.logLevel != "" {
		o.cfg.LogLevel = o.logLevel
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(o.cfg.LogLevel))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	o.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
	return nil
}
