package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

const defaultPageSize = 10

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func pageRequest(c *fiber.Ctx) (domain.PageRequest, error) {
	pageNo, err := queryInt(c, "pageNo", 0)
	if err != nil {
		return domain.PageRequest{}, err
	}
	pageSize, err := queryInt(c, "pageSize", defaultPageSize)
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.PageRequest{PageNo: pageNo, PageSize: pageSize}, nil
}

func queryInt(c *fiber.Ctx, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid query parameter", map[string]any{name: raw})
	}
	return v, nil
}

func activeFlag(c *fiber.Ctx) (bool, error) {
	raw := c.Query("active")
	active, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError("active must be true or false", map[string]any{"active": raw})
	}
	return active, nil
}
