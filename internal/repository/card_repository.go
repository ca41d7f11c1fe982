package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

// ErrCardLimitReached is returned when a user already holds the maximum number of cards.
var ErrCardLimitReached = errors.New("card limit reached")

// CardRepository defines persistence access for payment cards.
type CardRepository interface {
	CreateForUser(ctx context.Context, card *domain.PaymentCard, maxPerUser int) error
	Update(ctx context.Context, card *domain.PaymentCard) error
	GetByID(ctx context.Context, id int64) (*domain.PaymentCard, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	ListByUser(ctx context.Context, userID int64) ([]domain.PaymentCard, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.PaymentCard, int64, error)
	FindByHolderOrNumber(ctx context.Context, holder, number string) (*domain.PaymentCard, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
}

type cardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository returns a Postgres-backed implementation.
func NewCardRepository(pool *pgxpool.Pool) CardRepository {
	return &cardRepository{pool: pool}
}

const cardColumns = `id, user_id, holder, number, expiration_date, active, created_at, updated_at`

// CreateForUser inserts card after locking the owning user row, so the
// per-user card limit holds under concurrent creates. A missing user yields
// pgx.ErrNoRows.
func (r *cardRepository) CreateForUser(ctx context.Context, card *domain.PaymentCard, maxPerUser int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, card.UserID).Scan(&userID); err != nil {
			return err
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM payment_cards WHERE user_id=$1`, card.UserID).Scan(&count); err != nil {
			return err
		}
		if count >= maxPerUser {
			return ErrCardLimitReached
		}

		const query = `
            INSERT INTO payment_cards (user_id, holder, number, expiration_date, active)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING id, created_at, updated_at`
		return tx.QueryRow(ctx, query,
			card.UserID,
			card.Holder,
			card.Number,
			card.ExpirationDate,
			card.Active,
		).Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	})
}

// Update writes holder and expiration date and refreshes card with the stored row.
func (r *cardRepository) Update(ctx context.Context, card *domain.PaymentCard) error {
	query := `
        UPDATE payment_cards SET holder=$1, expiration_date=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING ` + cardColumns

	return scanCard(r.pool.QueryRow(ctx, query, card.Holder, card.ExpirationDate, card.ID), card)
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*domain.PaymentCard, error) {
	return r.fetchSingle(ctx, `SELECT `+cardColumns+` FROM payment_cards WHERE id=$1`, id)
}

func (r *cardRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM payment_cards WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *cardRepository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE payment_cards SET active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *cardRepository) ListByUser(ctx context.Context, userID int64) ([]domain.PaymentCard, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cardColumns+` FROM payment_cards WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func (r *cardRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.PaymentCard, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_cards`).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(page)
	query := fmt.Sprintf(`SELECT %s FROM payment_cards ORDER BY id LIMIT %d OFFSET %d`, cardColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (r *cardRepository) FindByHolderOrNumber(ctx context.Context, holder, number string) (*domain.PaymentCard, error) {
	query := `SELECT ` + cardColumns + ` FROM payment_cards WHERE holder=$1 OR number=$2 ORDER BY id LIMIT 1`
	var card domain.PaymentCard
	if err := scanCard(r.pool.QueryRow(ctx, query, holder, number), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payment_cards WHERE number=$1)`, number).Scan(&exists)
	return exists, err
}

func (r *cardRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.PaymentCard, error) {
	var card domain.PaymentCard
	if err := scanCard(r.pool.QueryRow(ctx, query, arg), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func scanCard(row pgx.Row, card *domain.PaymentCard) error {
	return row.Scan(
		&card.ID,
		&card.UserID,
		&card.Holder,
		&card.Number,
		&card.ExpirationDate,
		&card.Active,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
}

func scanCards(rows pgx.Rows) ([]domain.PaymentCard, error) {
	result := []domain.PaymentCard{}
	for rows.Next() {
		var card domain.PaymentCard
		if err := scanCard(rows, &card); err != nil {
			return nil, err
		}
		result = append(result, card)
	}
	return result, rows.Err()
}
