package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserManager is the user use-case surface the handler needs.
type UserManager interface {
	CreateUser(ctx context.Context, input service.UserInput) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, input service.UserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	SetUserActive(ctx context.Context, id int64, active bool) (*domain.User, error)
	ListUsers(ctx context.Context, page domain.PageRequest) (domain.Page[domain.User], error)
	FindUsers(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) (domain.Page[domain.User], error)
}

// UsersHandler exposes user endpoints.
type UsersHandler struct {
	users UserManager
	cards CardManager
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserManager, cards CardManager) *UsersHandler {
	return &UsersHandler{users: users, cards: cards}
}

// Create handles POST /app/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	req, err := parseUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.CreateUser(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(*user)})
}

// List handles GET /app/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	page, err := pageRequest(c)
	if err != nil {
		return err
	}
	result, err := h.users.ListUsers(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(result, dto.NewUserResponse)})
}

// Filter handles GET /app/users/filter.
func (h *UsersHandler) Filter(c *fiber.Ctx) error {
	page, err := pageRequest(c)
	if err != nil {
		return err
	}
	filter := domain.UserFilter{FirstName: c.Query("firstName"), Surname: c.Query("surname")}
	result, err := h.users.FindUsers(c.UserContext(), filter, page)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(result, dto.NewUserResponse)})
}

// Get handles GET /app/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(*user)})
}

// Update handles PUT /app/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := parseUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.UpdateUser(c.UserContext(), id, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(*user)})
}

// Delete handles DELETE /app/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Activate handles PUT /app/users/:id/activate?active=.
func (h *UsersHandler) Activate(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	active, err := activeFlag(c)
	if err != nil {
		return err
	}
	user, err := h.users.SetUserActive(c.UserContext(), id, active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(*user)})
}

// Cards handles GET /app/users/:id/cards.
func (h *UsersHandler) Cards(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cards, err := h.cards.ListCardsByUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	out := make([]dto.CardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, dto.NewCardResponse(card))
	}
	return c.JSON(fiber.Map{"data": out})
}

func parseUser(c *fiber.Ctx) (dto.UserRequest, error) {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(); len(problems) > 0 {
		return req, apperrors.NewValidationError("invalid user", problems)
	}
	return req, nil
}
