package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/service"
)

// CardRequest payload for issuing or updating a card. Number is ignored on update.
type CardRequest struct {
	Holder         string `json:"holder"`
	Number         string `json:"number"`
	ExpirationDate string `json:"expiration_date"`
}

// Validate checks the request. requireNumber is false for updates.
func (r CardRequest) Validate(requireNumber bool) map[string]any {
	problems := map[string]any{}
	if strings.TrimSpace(r.Holder) == "" {
		problems["holder"] = "required"
	}
	if requireNumber && !isCardNumber(r.Number) {
		problems["number"] = "must be 16 digits"
	}
	if r.ExpirationDate == "" {
		problems["expiration_date"] = "required"
	} else if _, err := time.Parse(DateLayout, r.ExpirationDate); err != nil {
		problems["expiration_date"] = "must be YYYY-MM-DD"
	}
	return problems
}

// Input converts a validated request into service input.
func (r CardRequest) Input() service.CardInput {
	expires, _ := time.Parse(DateLayout, r.ExpirationDate)
	return service.CardInput{
		Holder:         strings.TrimSpace(r.Holder),
		Number:         r.Number,
		ExpirationDate: expires,
	}
}

func isCardNumber(s string) bool {
	if len(s) != 16 {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// CardResponse is the public view of a card.
type CardResponse struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Holder         string    `json:"holder"`
	Number         string    `json:"number"`
	ExpirationDate string    `json:"expiration_date"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCardResponse maps the aggregate to its response.
func NewCardResponse(c domain.PaymentCard) CardResponse {
	return CardResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		Holder:         c.Holder,
		Number:         c.Number,
		ExpirationDate: c.ExpirationDate.Format(DateLayout),
		Active:         c.Active,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
