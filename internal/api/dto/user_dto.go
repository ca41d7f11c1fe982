package dto

import (
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/service"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// UserRequest payload for creating or updating a user.
type UserRequest struct {
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date"`
}

// Validate checks required fields and returns the per-field problems.
func (r UserRequest) Validate() map[string]any {
	problems := map[string]any{}
	if strings.TrimSpace(r.FirstName) == "" {
		problems["first_name"] = "required"
	}
	if strings.TrimSpace(r.Surname) == "" {
		problems["surname"] = "required"
	}
	if r.Email == "" {
		problems["email"] = "required"
	} else if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		problems["email"] = "must be a valid address"
	}
	if r.BirthDate == "" {
		problems["birth_date"] = "required"
	} else if born, err := time.Parse(DateLayout, r.BirthDate); err != nil {
		problems["birth_date"] = "must be YYYY-MM-DD"
	} else if !born.Before(time.Now()) {
		problems["birth_date"] = "must be in the past"
	}
	return problems
}

// Input converts a validated request into service input.
func (r UserRequest) Input() service.UserInput {
	born, _ := time.Parse(DateLayout, r.BirthDate)
	return service.UserInput{
		FirstName: strings.TrimSpace(r.FirstName),
		Surname:   strings.TrimSpace(r.Surname),
		Email:     r.Email,
		BirthDate: born,
	}
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	Surname   string    `json:"surname"`
	Email     string    `json:"email"`
	BirthDate string    `json:"birth_date"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse maps the aggregate to its response.
func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		Surname:   u.Surname,
		Email:     u.Email,
		BirthDate: u.BirthDate.Format(DateLayout),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PageResponse wraps one page of results.
type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	PageNo     int   `json:"page_no"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse maps a domain page with convert applied to every item.
func NewPageResponse[S, T any](page domain.Page[S], convert func(S) T) PageResponse[T] {
	items := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return PageResponse[T]{
		Items:      items,
		PageNo:     page.PageNo,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages(),
	}
}
