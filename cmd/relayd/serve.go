package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/relaykit/llm"
	"github.com/vinayprograms/relaykit/shutdown"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP relay",
		Long: `Start the HTTP relay.

SIGINT or SIGTERM stops it gracefully: in-flight requests finish, the idle
client janitor stops, then backend clients are closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log := cfg.NewLogger()

			backends, err := llm.NewBackends(cfg.BackendTemplate(), cfg.Backend.APIKeys)
			if err != nil {
				return fmt.Errorf("failed to initialize backends: %w", err)
			}

			r, err := buildRelay(cfg, backends, log)
			if err != nil {
				return err
			}

			coord := shutdown.NewCoordinator(shutdown.DefaultConfig(), log)
			r.registerShutdown(coord)
			coord.HandleSignals()

			r.janitor.Start()
			log.Info("relay_started", map[string]interface{}{
				"version":     version,
				"provider":    cfg.Backend.Provider,
				"model":       cfg.Backend.Model,
				"credentials": r.pool.Size(),
				"addr":        cfg.Server.Addr,
			})

			serveErr := make(chan error, 1)
			go func() { serveErr <- r.server.Start() }()

			select {
			case err := <-serveErr:
				if err != nil {
					_ = coord.ShutdownWithTimeout(0)
					return fmt.Errorf("server failed: %w", err)
				}
				<-coord.Done()
			case <-coord.Done():
			}
			return coord.Err()
		},
	}
}
