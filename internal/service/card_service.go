package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/cache"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// CardInput carries the card fields supplied by clients.
type CardInput struct {
	Holder         string
	Number         string
	ExpirationDate time.Time
}

// CardService manages payment cards and keeps the card cache coherent.
type CardService struct {
	cards  repository.CardRepository
	users  repository.UserRepository
	cache  *cache.Coordinator[domain.PaymentCard]
	events events.Dispatcher
	logger *zap.Logger
}

// CardDependencies encapsulates collaborators of the card service.
type CardDependencies struct {
	CardRepo   repository.CardRepository
	UserRepo   repository.UserRepository
	CardCache  *cache.Coordinator[domain.PaymentCard]
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewCardService builds the service.
func NewCardService(deps CardDependencies) *CardService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardService{
		cards:  deps.CardRepo,
		users:  deps.UserRepo,
		cache:  deps.CardCache,
		events: deps.Dispatcher,
		logger: logger,
	}
}

// CreateCard issues an active card to userID, enforcing the per-user limit.
func (s *CardService) CreateCard(ctx context.Context, userID int64, input CardInput) (*domain.PaymentCard, error) {
	number := strings.TrimSpace(input.Number)
	exists, err := s.cards.ExistsByNumber(ctx, number)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("card number already registered", nil)
	}

	card := &domain.PaymentCard{
		UserID:         userID,
		Holder:         input.Holder,
		Number:         number,
		ExpirationDate: input.ExpirationDate,
		Active:         true,
	}
	err = s.cards.CreateForUser(ctx, card, domain.MaxCardsPerUser)
	switch {
	case err == nil:
		return card, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("user", map[string]any{"id": userID})
	case errors.Is(err, repository.ErrCardLimitReached):
		publish(ctx, s.events, s.logger, events.NewEvent(events.EventCardLimitExceed, userID, actor(ctx), events.CardLimitPayload{Limit: domain.MaxCardsPerUser}))
		return nil, apperrors.NewConflict("the user's card limit has been exceeded", map[string]any{"limit": domain.MaxCardsPerUser})
	case isUniqueViolation(err):
		return nil, apperrors.NewConflict("card number already registered", nil)
	default:
		return nil, apperrors.MapError(err)
	}
}

// GetCard returns a card, served from cache when possible.
func (s *CardService) GetCard(ctx context.Context, id int64) (*domain.PaymentCard, error) {
	card, err := s.cache.Read(ctx, id, func(ctx context.Context) (domain.PaymentCard, error) {
		found, err := s.cards.GetByID(ctx, id)
		if err != nil {
			return domain.PaymentCard{}, storeError("card", id, err)
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard changes holder and expiration date and caches the stored result.
func (s *CardService) UpdateCard(ctx context.Context, id int64, input CardInput) (*domain.PaymentCard, error) {
	card, err := s.cache.Write(ctx, id, func(ctx context.Context) (domain.PaymentCard, error) {
		card := domain.PaymentCard{ID: id, Holder: input.Holder, ExpirationDate: input.ExpirationDate}
		if err := s.cards.Update(ctx, &card); err != nil {
			return domain.PaymentCard{}, storeError("card", id, err)
		}
		return card, nil
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard removes the card and evicts it from cache.
func (s *CardService) DeleteCard(ctx context.Context, id int64) error {
	return s.cache.Remove(ctx, id, func(ctx context.Context) error {
		if err := s.cards.Delete(ctx, id); err != nil {
			return storeError("card", id, err)
		}
		return nil
	})
}

// SetCardActive flips the active flag and caches the refreshed record.
func (s *CardService) SetCardActive(ctx context.Context, id int64, active bool) (*domain.PaymentCard, error) {
	card, err := s.cache.Write(ctx, id, func(ctx context.Context) (domain.PaymentCard, error) {
		if err := s.cards.SetActive(ctx, id, active); err != nil {
			return domain.PaymentCard{}, storeError("card", id, err)
		}
		refreshed, err := s.cards.GetByID(ctx, id)
		if err != nil {
			return domain.PaymentCard{}, storeError("card", id, err)
		}
		return *refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// ListCardsByUser returns every card of an existing user.
func (s *CardService) ListCardsByUser(ctx context.Context, userID int64) ([]domain.PaymentCard, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, storeError("user", userID, err)
	}
	cards, err := s.cards.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return cards, nil
}

// ListCards returns one page of cards.
func (s *CardService) ListCards(ctx context.Context, page domain.PageRequest) (domain.Page[domain.PaymentCard], error) {
	if err := validatePage(page); err != nil {
		return domain.Page[domain.PaymentCard]{}, err
	}
	cards, total, err := s.cards.List(ctx, page)
	if err != nil {
		return domain.Page[domain.PaymentCard]{}, apperrors.MapError(err)
	}
	return domain.Page[domain.PaymentCard]{Items: cards, PageNo: page.PageNo, PageSize: page.PageSize, Total: total}, nil
}

// SearchCard finds the first card matching holder or number.
func (s *CardService) SearchCard(ctx context.Context, holder, number string) (*domain.PaymentCard, error) {
	card, err := s.cards.FindByHolderOrNumber(ctx, holder, number)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("card", map[string]any{"holder": holder})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return card, nil
}
