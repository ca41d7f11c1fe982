package domain

import "time"

// MaxCardsPerUser caps how many cards one user may hold.
const MaxCardsPerUser = 5

// PaymentCard belongs to exactly one User.
type PaymentCard struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Holder         string    `json:"holder"`
	Number         string    `json:"number"`
	ExpirationDate time.Time `json:"expiration_date"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
