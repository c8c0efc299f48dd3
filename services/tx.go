package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// runInTx executes fn inside one database transaction. Any error from fn rolls
// the transaction back and is returned unchanged, so a failed operation writes nothing.
func runInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			slog.WarnContext(ctx, "transaction rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return classifyDBError(err, "failed to commit transaction")
	}
	return nil
}

// forUpdate adds a row lock to the next query. SQLite ignores the clause and
// serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// classifyDBError turns driver failures into domain kinds where one applies
// and wraps everything else with context for the log.
func classifyDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsDomainError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound("NOT_FOUND", "record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflict("record already exists")
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return validationError("value violates a data constraint")
	case isSerializationFailure(err):
		return conflict("concurrent update, please retry")
	}
	return errors.Wrap(err, msg)
}

func isSerializationFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "lock not available") ||
		strings.Contains(msg, "database is locked")
}
