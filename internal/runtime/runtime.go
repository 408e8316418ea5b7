// Package runtime manages the daemon's background goroutines under one
// cancellation scope, replacing the teacher's hand-rolled
// "launch a goroutine, wait for a signal, call Stop" sequence in
// cmd/bot/main.go with golang.org/x/sync/errgroup so every background task
// (simulator tick loop, order-tracker GC, carrier server) shares a context
// and a single error/shutdown path.
package runtime

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Task is one long-running background job. It must return promptly once ctx
// is cancelled.
type Task func(ctx context.Context) error

// Group runs a set of Tasks under a shared context, cancelled either by
// SIGINT/SIGTERM or by any task returning a non-nil error.
type Group struct {
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
}

// New builds a Group whose context is cancelled on SIGINT/SIGTERM.
func New(parent context.Context, logger *slog.Logger) *Group {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{logger: logger.With("component", "runtime"), ctx: ctx, cancel: stop, eg: eg}
}

// Context returns the group's shared, cancellation-aware context. Pass it
// to every Task and to anything a Task hands off to.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go launches a named Task. If it returns a non-nil error, the group's
// context is cancelled, causing every other Task to be asked to stop.
func (g *Group) Go(name string, task Task) {
	g.eg.Go(func() error {
		err := task(g.ctx)
		if err != nil && g.ctx.Err() == nil {
			g.logger.Error("task failed", "task", name, "error", err)
		}
		return err
	})
}

// Wait blocks until every Task has returned, releasing the signal hook.
// Returns the first non-nil error reported by any task, ignoring
// context.Canceled (the expected outcome of a clean shutdown signal).
func (g *Group) Wait() error {
	defer g.cancel()
	if err := g.eg.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// ShutdownLogger logs receipt of the shutdown signal once the group's
// context is cancelled for any external reason (signal or sibling-task
// failure). Intended to be run as one of the group's own Tasks.
func ShutdownLogger(logger *slog.Logger) Task {
	return func(ctx context.Context) error {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		return nil
	}
}

// RunOrExit loads an OS-level exit on fatal startup error, matching the
// teacher's cmd/bot/main.go "log and os.Exit(1)" convention for
// unrecoverable setup failures (as opposed to a running task's own
// runtime errors, which flow back through Group.Wait).
func RunOrExit(logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logger.Error(msg, "error", err)
	os.Exit(1)
}
