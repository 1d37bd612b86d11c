// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package postgres implements the engine's reference dialect: a SQL client
over pgx with savepoint-nested transactions and deadlock retry, plus the
PostgreSQL [adapter.Adapter].

# Transactions

The client carries the active transaction in the context. The outermost
[Client.WithTransaction] call issues BEGIN; nested calls open savepoints
through pgx's nested Begin. Only the outermost scope retries deadlocks
(SQLSTATE 40P01), with a linear 50ms × attempt backoff; deadlocks inside a
savepoint propagate so the whole transaction restarts.
*/
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/strata/apperr"
)

// Opinionated pool settings for the engine workload.
const (
	maxConns          = 25
	minConns          = 2
	maxConnLifetime   = 60 * time.Minute
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = 1 * time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
)

// Deadlock retry policy of the outermost transaction scope.
const (
	// DefaultMaxAttempts bounds total tries of one transaction body.
	DefaultMaxAttempts = 3
	// retryBackoffStep is multiplied by the attempt number between tries.
	retryBackoffStep = 50 * time.Millisecond
)

// txKey carries the active [pgx.Tx] through the context.
type txKey struct{}

// Client wraps a pgx pool with placeholder translation and the transaction
// coordinator. Safe for concurrent use.
type Client struct {
	pool        *pgxpool.Pool
	logger      *slog.Logger
	maxAttempts int
	activeTxs   atomic.Int64
}

// NewClient connects a pool to dsn and validates the connection. Every
// pooled connection pins its session to UTC so timestamp literals written
// in the canonical wire form are unambiguous.
func NewClient(ctx context.Context, dsn string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone TO 'UTC'")
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	client := &Client{pool: pool, logger: logger, maxAttempts: DefaultMaxAttempts}
	if err := client.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	stats := pool.Stat()
	logger.Info("postgres pool connected",
		slog.Int("max_conns", int(stats.MaxConns())),
		slog.Int("total_conns", int(stats.TotalConns())),
	)
	return client, nil
}

// NewClientFromPool wraps an existing pool; the caller owns its lifecycle.
func NewClientFromPool(pool *pgxpool.Pool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{pool: pool, logger: logger, maxAttempts: DefaultMaxAttempts}
}

// Ping verifies the pool is healthy.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.pool.Ping(pingCtx); err != nil {
		return apperr.Database("postgres ping failed", err)
	}
	return nil
}

// Disconnect closes the pool. It fails while any transaction is active.
func (c *Client) Disconnect() error {
	if c.activeTxs.Load() > 0 {
		return apperr.Transaction("cannot disconnect while a transaction is active", nil)
	}
	c.pool.Close()
	return nil
}

// # Query execution

// Query runs sql with `?` placeholders rewritten to positional form,
// routing through the active transaction when one is open.
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rewritten := TranslatePlaceholders(sql)
	if tx, ok := txFrom(ctx); ok {
		return tx.Query(ctx, rewritten, args...)
	}
	return c.pool.Query(ctx, rewritten, args...)
}

// QueryRow is [Client.Query] for single-row statements.
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	rewritten := TranslatePlaceholders(sql)
	if tx, ok := txFrom(ctx); ok {
		return tx.QueryRow(ctx, rewritten, args...)
	}
	return c.pool.QueryRow(ctx, rewritten, args...)
}

// Exec runs a statement and returns its command tag.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	rewritten := TranslatePlaceholders(sql)
	if tx, ok := txFrom(ctx); ok {
		return tx.Exec(ctx, rewritten, args...)
	}
	return c.pool.Exec(ctx, rewritten, args...)
}

// # Transaction coordinator

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// WithTransaction runs fn inside a transaction scope.
//
// When a transaction is already open on the context, a savepoint scopes fn:
// its failure rolls back to the savepoint without disturbing the outer
// transaction. The outermost call owns BEGIN/COMMIT and retries the whole
// body on deadlock.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if outer, ok := txFrom(ctx); ok {
		return c.runSavepoint(ctx, outer, fn)
	}
	return c.runOutermost(ctx, fn)
}

func (c *Client) runSavepoint(ctx context.Context, outer pgx.Tx, fn func(ctx context.Context) error) error {
	// pgx nested Begin issues SAVEPOINT; Commit releases it, Rollback
	// returns to it.
	inner, err := outer.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, inner)); err != nil {
		if rbErr := inner.Rollback(ctx); rbErr != nil {
			c.logger.Warn("savepoint rollback failed", slog.Any("error", rbErr))
		}
		// Deadlocks propagate: the whole transaction must restart.
		return err
	}
	if err := inner.Commit(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

func (c *Client) runOutermost(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		tx, err := c.pool.Begin(ctx)
		if err != nil {
			return wrapError(err)
		}
		c.activeTxs.Add(1)

		err = fn(context.WithValue(ctx, txKey{}, tx))
		if err == nil {
			err = tx.Commit(ctx)
			c.activeTxs.Add(-1)
			if err == nil {
				return nil
			}
		} else {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				c.logger.Warn("transaction rollback failed", slog.Any("error", rbErr))
			}
			c.activeTxs.Add(-1)
		}

		lastErr = err
		if !IsDeadlock(err) {
			return wrapError(err)
		}
		if attempt < c.maxAttempts {
			backoff := RetryBackoff(attempt)
			c.logger.Warn("deadlock detected, retrying transaction",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return apperr.Timeout(ctx.Err())
			}
		}
	}

	return apperr.Transaction(
		fmt.Sprintf("deadlock retries exhausted after %d attempts", c.maxAttempts),
		lastErr,
	)
}

// RetryBackoff returns the linear delay before the next attempt.
func RetryBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * retryBackoffStep
}

// # Quoting and placeholders

// TranslatePlaceholders rewrites `?` placeholders to the positional `$n`
// form, leaving quoted literals and identifiers untouched.
func TranslatePlaceholders(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)

	position := 0
	inString := false
	inIdent := false

	for _, r := range sql {
		switch {
		case r == '\'' && !inIdent:
			inString = !inString
			b.WriteRune(r)
		case r == '"' && !inString:
			inIdent = !inIdent
			b.WriteRune(r)
		case r == '?' && !inString && !inIdent:
			position++
			fmt.Fprintf(&b, "$%d", position)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// QuoteLiteral renders a string as a SQL literal with quotes doubled.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdent renders an identifier, doubling embedded quotes.
func QuoteIdent(s string) string {
	return pgx.Identifier{s}.Sanitize()
}
