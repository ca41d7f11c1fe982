package domain

import "time"

// User is the account holder aggregate.
type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	Surname   string    `json:"surname"`
	BirthDate time.Time `json:"birth_date"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserFilter narrows user searches. Empty fields match everything.
type UserFilter struct {
	FirstName string
	Surname   string
}
