package main

import (
	"context"
	"fmt"

	"github.com/vinayprograms/relaykit/config"
	"github.com/vinayprograms/relaykit/credentials"
	"github.com/vinayprograms/relaykit/dispatch"
	"github.com/vinayprograms/relaykit/llm"
	"github.com/vinayprograms/relaykit/logging"
	"github.com/vinayprograms/relaykit/ratelimit"
	"github.com/vinayprograms/relaykit/server"
	"github.com/vinayprograms/relaykit/shutdown"
)

// relay is the assembled process: every component the serve command runs.
type relay struct {
	pool       *credentials.Pool
	throttle   *ratelimit.Throttle
	janitor    *ratelimit.Janitor
	dispatcher *dispatch.Dispatcher
	server     *server.Server
}

// buildRelay wires the components over backends, one per credential. The
// pool takes ownership of backends.
func buildRelay(cfg *config.Config, backends []llm.Backend, log *logging.Logger) (*relay, error) {
	pool, err := credentials.NewPool(backends, credentials.PoolConfig{
		RotationDelay: cfg.Pool.RotationDelay,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	throttle, err := ratelimit.NewThrottle(pool, cfg.Throttle, log)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to create throttle: %w", err)
	}

	janitor, err := ratelimit.NewJanitor(throttle, cfg.Pool.JanitorSchedule, log)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to create janitor: %w", err)
	}

	dispatcher, err := dispatch.New(pool, throttle, cfg.Dispatch, log)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	return &relay{
		pool:       pool,
		throttle:   throttle,
		janitor:    janitor,
		dispatcher: dispatcher,
		server:     server.New(cfg.Server, dispatcher, throttle, pool, log),
	}, nil
}

// registerShutdown stops the HTTP server first so in-flight requests finish,
// then the janitor, then the backend clients.
func (r *relay) registerShutdown(coord *shutdown.Coordinator) {
	coord.RegisterFunc("http", shutdown.PhaseHTTP, r.server.Shutdown)
	coord.RegisterFunc("janitor", shutdown.PhaseJanitor, r.janitor.Stop)
	coord.RegisterFunc("backends", shutdown.PhaseBackends, func(context.Context) error {
		return r.pool.Close()
	})
}
