package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id int64) (cardIDs []int64, err error)
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, surname, birth_date, email, active, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, surname, birth_date, email, active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.Surname,
		user.BirthDate,
		user.Email,
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

// Update writes the editable fields and refreshes user with the stored row.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
        UPDATE users SET first_name=$1, surname=$2, birth_date=$3, email=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.Surname,
		user.BirthDate,
		user.Email,
		user.ID,
	), user)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`

	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists)
	return exists, err
}

// Delete removes the user and its cards in one transaction and returns the
// ids of the removed cards. The user row is locked first, so a concurrent
// CreateForUser either commits before the ids are collected or finds no user.
func (r *userRepository) Delete(ctx context.Context, id int64) ([]int64, error) {
	var cardIDs []int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, id).Scan(&userID); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `DELETE FROM payment_cards WHERE user_id=$1 RETURNING id`, id)
		if err != nil {
			return err
		}
		cardIDs, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cardIDs, nil
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns one page of users matching filter by case-insensitive name prefix.
func (r *userRepository) List(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if name := strings.TrimSpace(filter.FirstName); name != "" {
		args = append(args, strings.ToLower(name)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(first_name) LIKE $%d", len(args)))
	}
	if surname := strings.TrimSpace(filter.Surname); surname != "" {
		args = append(args, strings.ToLower(surname)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(surname) LIKE $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(page)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY id LIMIT %d OFFSET %d`, userColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.FirstName,
		&user.Surname,
		&user.BirthDate,
		&user.Email,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	result := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func pageBounds(page domain.PageRequest) (limit, offset int) {
	limit = page.PageSize
	if limit <= 0 {
		limit = 20
	}
	offset = page.PageNo * limit
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
