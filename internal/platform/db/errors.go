package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/casework/casework/internal/platform/apperr"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidTextRep      = "22P02"
)

// ClassifyError maps driver errors onto the application error taxonomy.
// entity names the record for not-found messages (e.g. "Patient").
func ClassifyError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Duplicate(uniqueField(pgErr))
		case pgForeignKeyViolation:
			return apperr.Validation(referenceMessage(pgErr))
		case pgCheckViolation:
			return apperr.Validation(pgErr.Message)
		case pgInvalidTextRep:
			return apperr.InvalidID("id")
		}
	}
	return apperr.Internal(err)
}

// uniqueField derives the offending column from a constraint named
// <table>_<column>_key, falling back to the raw constraint name.
func uniqueField(pgErr *pgconn.PgError) string {
	name := pgErr.ConstraintName
	if name == "" {
		return "value"
	}
	name = strings.TrimSuffix(name, "_key")
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	return name
}

func referenceMessage(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return "referenced record does not exist (" + pgErr.ConstraintName + ")"
	}
	return "referenced record does not exist"
}
