// Package shutdown stops the relay in order on SIGTERM or SIGINT.
//
// Handlers register into phases; lower phases stop first and handlers in
// the same phase stop concurrently. The relay uses three:
//
//	coord := shutdown.NewCoordinator(shutdown.DefaultConfig(), log)
//	coord.RegisterFunc("http", shutdown.PhaseHTTP, srv.Shutdown)
//	coord.RegisterFunc("janitor", shutdown.PhaseJanitor, janitor.Stop)
//	coord.RegisterFunc("backends", shutdown.PhaseBackends, func(context.Context) error {
//	    return pool.Close()
//	})
//	coord.HandleSignals()
//	<-coord.Done()
//
// In-flight generate requests finish during the HTTP phase, so backend
// clients are only closed once nothing can call them.
package shutdown
