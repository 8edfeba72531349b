package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type shutdownHook struct {
	name string
	stop func(context.Context) error
}

// ShutdownCoordinator collects teardown hooks during startup and runs
// them in reverse order, so dependents stop before their dependencies.
type ShutdownCoordinator struct {
	mu    sync.Mutex
	hooks []shutdownHook
}

// Register appends a named teardown hook.
func (s *ShutdownCoordinator) Register(name string, stop func(context.Context) error) {
	s.mu.Lock()
	s.hooks = append(s.hooks, shutdownHook{name: name, stop: stop})
	s.mu.Unlock()
}

// Shutdown runs every hook, newest first. All hooks run even when some
// fail; the failures are joined into the returned error.
func (s *ShutdownCoordinator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]shutdownHook(nil), s.hooks...)
	s.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		slog.Info("shutting down", "component", hooks[i].name)
		if err := hooks[i].stop(ctx); err != nil {
			slog.Error("shutdown error", "component", hooks[i].name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}
