// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package emitter implements the engine's named-listener event bus.

Listeners are registered under a (event, name) pair; the name makes
subscriptions addressable for [Emitter.Off] and for silence scopes. The
wildcard event "*" observes every trigger and receives the original event
name as its first argument.

Triggering is fire-and-forget from the caller's point of view: listener
failures never propagate to the triggerer. A failing listener's error is
re-emitted on the reserved "error" event; when nothing listens there, it is
logged through slog.
*/
package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/taibuivan/strata/apperr"
)

const (
	// Wildcard subscribes to every event; handlers receive the original
	// event name as the first argument.
	Wildcard = "*"
	// EventError is the reserved channel that receives listener failures.
	EventError = "error"
)

// Handler is a listener callback. args carry the trigger payload; for
// wildcard listeners args[0] is the original event name.
type Handler func(ctx context.Context, event string, args ...any) error

// Emitter is a name-keyed event bus. The zero value is not usable;
// construct with [New]. Safe for concurrent use.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[string]map[string]Handler
	logger    *slog.Logger
}

// New returns an emitter logging unhandled error events through logger.
// A nil logger falls back to [slog.Default].
func New(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		listeners: make(map[string]map[string]Handler),
		logger:    logger,
	}
}

// On registers handler under (event, name). Registering a name twice on the
// same event fails with a conflict error.
func (e *Emitter) On(event, name string, handler Handler) error {
	if event == "" || name == "" || handler == nil {
		return apperr.Validation("event, name, and handler are required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	named, ok := e.listeners[event]
	if !ok {
		named = make(map[string]Handler)
		e.listeners[event] = named
	}
	if _, dup := named[name]; dup {
		return apperr.Conflict(fmt.Sprintf("listener %q already registered on event %q", name, event))
	}
	named[name] = handler
	return nil
}

// Off removes the listener registered under (event, name). Unknown pairs are
// a no-op.
func (e *Emitter) Off(event, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if named, ok := e.listeners[event]; ok {
		delete(named, name)
		if len(named) == 0 {
			delete(e.listeners, event)
		}
	}
}

// Trigger dispatches args to every listener of event and to the wildcard
// channel. Listener errors are captured and re-emitted on [EventError];
// they never reach the caller. Listeners silenced via [Silent] are skipped.
func (e *Emitter) Trigger(ctx context.Context, event string, args ...any) {
	silenced := silencedFrom(ctx)

	for name, handler := range e.snapshot(event) {
		if silenced.covers(name) {
			continue
		}
		e.dispatch(ctx, event, name, handler, args)
	}

	wildcardArgs := append([]any{event}, args...)
	for name, handler := range e.snapshot(Wildcard) {
		if silenced.covers(name) {
			continue
		}
		e.dispatch(ctx, Wildcard, name, handler, wildcardArgs)
	}
}

// dispatch runs one listener, converting failures (errors and panics) into
// error-channel emissions.
func (e *Emitter) dispatch(ctx context.Context, event, name string, handler Handler, args []any) {
	defer func() {
		if r := recover(); r != nil {
			e.emitError(ctx, event, name, fmt.Errorf("listener panic: %v", r))
		}
	}()
	if err := handler(ctx, event, args...); err != nil {
		e.emitError(ctx, event, name, err)
	}
}

// emitError delivers a listener failure on the reserved error channel, or
// logs it when no error listeners exist. Failures of error listeners
// themselves are logged directly to avoid loops.
func (e *Emitter) emitError(ctx context.Context, event, name string, cause error) {
	logFallback := func() {
		e.logger.Error("event listener failed",
			slog.String("event", event),
			slog.String("listener", name),
			slog.Any("error", cause),
		)
	}

	if event == EventError {
		logFallback()
		return
	}

	errorListeners := e.snapshot(EventError)
	if len(errorListeners) == 0 {
		logFallback()
		return
	}
	for _, handler := range errorListeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logFallback()
				}
			}()
			if err := handler(ctx, EventError, cause, event, name); err != nil {
				logFallback()
			}
		}()
	}
}

// snapshot copies the listener map for an event so dispatch runs without
// holding the lock.
func (e *Emitter) snapshot(event string) map[string]Handler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	named, ok := e.listeners[event]
	if !ok {
		return nil
	}
	out := make(map[string]Handler, len(named))
	for name, h := range named {
		out[name] = h
	}
	return out
}

// # Silence scopes

// silenceKey is the private context key for the silenced-listener set.
type silenceKey struct{}

// silence records which listener names are muted; all == true mutes every
// listener regardless of name.
type silence struct {
	all   bool
	names map[string]struct{}
}

func (s *silence) covers(name string) bool {
	if s == nil {
		return false
	}
	if s.all {
		return true
	}
	_, ok := s.names[name]
	return ok
}

func silencedFrom(ctx context.Context) *silence {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(silenceKey{}).(*silence)
	return s
}

// Silent runs fn with the named listeners muted for every trigger that uses
// the context fn receives. A nil names slice mutes all listeners. Scopes
// nest; the inner scope replaces the outer one for its duration.
func Silent(ctx context.Context, names []string, fn func(ctx context.Context) error) error {
	muted := &silence{}
	if names == nil {
		muted.all = true
	} else {
		muted.names = make(map[string]struct{}, len(names))
		for _, n := range names {
			muted.names[n] = struct{}{}
		}
	}
	return fn(context.WithValue(ctx, silenceKey{}, muted))
}
