package service

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

const maxPageSize = 100

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// storeError maps repository errors for one aggregate to domain errors.
func storeError(resource string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func validatePage(page domain.PageRequest) error {
	if page.PageNo < 0 {
		return apperrors.NewValidationError("pageNo must not be negative", map[string]any{"pageNo": page.PageNo})
	}
	if page.PageSize <= 0 || page.PageSize > maxPageSize {
		return apperrors.NewValidationError("pageSize out of range", map[string]any{"pageSize": page.PageSize, "max": maxPageSize})
	}
	return nil
}
