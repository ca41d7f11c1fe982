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

// CardManager is the payment card use-case surface the handlers need.
type CardManager interface {
	CreateCard(ctx context.Context, userID int64, input service.CardInput) (*domain.PaymentCard, error)
	GetCard(ctx context.Context, id int64) (*domain.PaymentCard, error)
	UpdateCard(ctx context.Context, id int64, input service.CardInput) (*domain.PaymentCard, error)
	DeleteCard(ctx context.Context, id int64) error
	SetCardActive(ctx context.Context, id int64, active bool) (*domain.PaymentCard, error)
	ListCardsByUser(ctx context.Context, userID int64) ([]domain.PaymentCard, error)
	ListCards(ctx context.Context, page domain.PageRequest) (domain.Page[domain.PaymentCard], error)
	SearchCard(ctx context.Context, holder, number string) (*domain.PaymentCard, error)
}

// CardsHandler exposes payment card endpoints.
type CardsHandler struct {
	cards CardManager
}

// NewCardsHandler constructs handler.
func NewCardsHandler(cards CardManager) *CardsHandler {
	return &CardsHandler{cards: cards}
}

// Create handles POST /app/cards/user/:userId.
func (h *CardsHandler) Create(c *fiber.Ctx) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	req, err := parseCard(c, true)
	if err != nil {
		return err
	}
	card, err := h.cards.CreateCard(c.UserContext(), userID, req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCardResponse(*card)})
}

// Get handles GET /app/cards/:id.
func (h *CardsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	card, err := h.cards.GetCard(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(*card)})
}

// Update handles PUT /app/cards/:id.
func (h *CardsHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := parseCard(c, false)
	if err != nil {
		return err
	}
	card, err := h.cards.UpdateCard(c.UserContext(), id, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(*card)})
}

// Delete handles DELETE /app/cards/:id.
func (h *CardsHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.cards.DeleteCard(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Activate handles PUT /app/cards/:id/activate?active=.
func (h *CardsHandler) Activate(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	active, err := activeFlag(c)
	if err != nil {
		return err
	}
	card, err := h.cards.SetCardActive(c.UserContext(), id, active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(*card)})
}

// List handles GET /app/cards.
func (h *CardsHandler) List(c *fiber.Ctx) error {
	page, err := pageRequest(c)
	if err != nil {
		return err
	}
	result, err := h.cards.ListCards(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(result, dto.NewCardResponse)})
}

// Search handles GET /app/cards/search?holder&number.
func (h *CardsHandler) Search(c *fiber.Ctx) error {
	holder, number := c.Query("holder"), c.Query("number")
	if holder == "" && number == "" {
		return apperrors.NewValidationError("holder or number required", nil)
	}
	card, err := h.cards.SearchCard(c.UserContext(), holder, number)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(*card)})
}

func parseCard(c *fiber.Ctx, requireNumber bool) (dto.CardRequest, error) {
	var req dto.CardRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(requireNumber); len(problems) > 0 {
		return req, apperrors.NewValidationError("invalid card", problems)
	}
	return req, nil
}
