package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/relaykit/config"
	"github.com/vinayprograms/relaykit/credentials"
)

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	configPath      string
	credentialsPath string
	addr            string
	logLevel        string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "relayd",
		Short:         "Chat relay with pooled credentials and request throttling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (.toml, .yaml or .yml)")
	flags.StringVar(&opts.credentialsPath, "credentials", "", "credentials file (default: first of the standard locations)")
	flags.StringVar(&opts.addr, "addr", "", "listen address, overrides config and PORT")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(opts), newCheckCmd(opts))
	return root
}

// loadConfig resolves configuration in order: defaults, config file,
// environment, credentials file (only when no keys were set), flags.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	var creds *credentials.Credentials
	if opts.credentialsPath != "" {
		creds, err = credentials.LoadFile(opts.credentialsPath)
	} else {
		creds, _, err = credentials.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.ResolveKeys(creds)

	var flags config.Config
	flags.Server.Addr = opts.addr
	flags.Logging.Level = opts.logLevel
	if err := cfg.Override(flags); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
