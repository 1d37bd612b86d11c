// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/strata/apperr"
)

// wrapError bridges pgx errors into the engine taxonomy. Errors that are
// already classified pass through unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if ae := apperr.As(err); ae != nil {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Timeout(err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Document")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict("Resource already exists")
		case pgerrcode.UndefinedTable:
			return apperr.NotFound("Collection")
		case pgerrcode.UndefinedColumn:
			return apperr.NotFound("Attribute")
		case pgerrcode.ForeignKeyViolation, pgerrcode.RestrictViolation:
			return apperr.Dependency("Resource is still referenced")
		case pgerrcode.QueryCanceled:
			return apperr.Timeout(err)
		}
	}

	return apperr.Database("database operation failed", err)
}

// IsDeadlock reports whether err is a backend deadlock (SQLSTATE 40P01),
// before or after wrapping.
func IsDeadlock(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DeadlockDetected
}
