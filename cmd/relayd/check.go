package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/relaykit/credentials"
	"github.com/vinayprograms/relaykit/llm"
)

// checkReport is printed by the check command.
type checkReport struct {
	Provider    string               `json:"provider"`
	Model       string               `json:"model"`
	Addr        string               `json:"addr"`
	Credentials int                  `json:"credentials"`
	Pool        credentials.Snapshot `json:"pool"`
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and print the credential pool state",
		Long: `Validate configuration, build one backend client per credential, and print
the resulting pool snapshot. No requests are sent to the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			backends, err := llm.NewBackends(cfg.BackendTemplate(), cfg.Backend.APIKeys)
			if err != nil {
				return fmt.Errorf("failed to initialize backends: %w", err)
			}

			r, err := buildRelay(cfg, backends, nil)
			if err != nil {
				return err
			}
			defer r.pool.Close() //nolint:errcheck // nothing to recover on exit

			report := checkReport{
				Provider:    cfg.Backend.Provider,
				Model:       cfg.Backend.Model,
				Addr:        cfg.Server.Addr,
				Credentials: r.pool.Size(),
				Pool:        r.pool.Snapshot(),
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
