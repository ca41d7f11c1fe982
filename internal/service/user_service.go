package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/cache"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserInput carries the editable user fields.
type UserInput struct {
	FirstName string
	Surname   string
	Email     string
	BirthDate time.Time
}

// UserService manages users and keeps the user cache coherent with the store.
type UserService struct {
	users  repository.UserRepository
	cache  *cache.Coordinator[domain.User]
	events events.Dispatcher
	logger *zap.Logger
}

// UserDependencies encapsulates collaborators of the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	UserCache  *cache.Coordinator[domain.User]
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:  deps.UserRepo,
		cache:  deps.UserCache,
		events: deps.Dispatcher,
		logger: logger,
	}
}

// CreateUser registers an active user. New users are not cached until read.
func (s *UserService) CreateUser(ctx context.Context, input UserInput) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}

	user := &domain.User{
		FirstName: input.FirstName,
		Surname:   input.Surname,
		Email:     email,
		BirthDate: input.BirthDate,
		Active:    true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// GetUser returns a user, served from cache when possible.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.cache.Read(ctx, id, func(ctx context.Context) (domain.User, error) {
		found, err := s.users.GetByID(ctx, id)
		if err != nil {
			return domain.User{}, storeError("user", id, err)
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser overwrites the editable fields and caches the stored result.
func (s *UserService) UpdateUser(ctx context.Context, id int64, input UserInput) (*domain.User, error) {
	user, err := s.cache.Write(ctx, id, func(ctx context.Context) (domain.User, error) {
		user := domain.User{
			ID:        id,
			FirstName: input.FirstName,
			Surname:   input.Surname,
			Email:     strings.TrimSpace(input.Email),
			BirthDate: input.BirthDate,
		}
		if err := s.users.Update(ctx, &user); err != nil {
			if isUniqueViolation(err) {
				return domain.User{}, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
			}
			return domain.User{}, storeError("user", id, err)
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user and its cards, then evicts them from cache.
// Card entries are evicted by the user_deleted subscriber.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	var cardIDs []int64
	err := s.cache.Remove(ctx, id, func(ctx context.Context) error {
		removed, err := s.users.Delete(ctx, id)
		if err != nil {
			return storeError("user", id, err)
		}
		cardIDs = removed
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, s.events, s.logger, events.NewEvent(events.EventUserDeleted, id, actor(ctx), events.UserDeletedPayload{CardIDs: cardIDs}))
	return nil
}

// SetUserActive flips the active flag and caches the refreshed record.
func (s *UserService) SetUserActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	user, err := s.cache.Write(ctx, id, func(ctx context.Context) (domain.User, error) {
		if err := s.users.SetActive(ctx, id, active); err != nil {
			return domain.User{}, storeError("user", id, err)
		}
		refreshed, err := s.users.GetByID(ctx, id)
		if err != nil {
			return domain.User{}, storeError("user", id, err)
		}
		return *refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, s.logger, events.NewEvent(events.EventUserActivity, id, actor(ctx), events.UserActivityPayload{Active: active}))
	return &user, nil
}

// ListUsers returns one page of users. Pages are never cached.
func (s *UserService) ListUsers(ctx context.Context, page domain.PageRequest) (domain.Page[domain.User], error) {
	return s.FindUsers(ctx, domain.UserFilter{}, page)
}

// FindUsers returns one page of users whose names start with the filter values.
func (s *UserService) FindUsers(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) (domain.Page[domain.User], error) {
	if err := validatePage(page); err != nil {
		return domain.Page[domain.User]{}, err
	}
	users, total, err := s.users.List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.User]{}, apperrors.MapError(err)
	}
	return domain.Page[domain.User]{Items: users, PageNo: page.PageNo, PageSize: page.PageSize, Total: total}, nil
}

// publish delivers event; handler failures never fail the operation that raised it.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func actor(ctx context.Context) string {
	if identity, ok := auth.CallerFromContext(ctx); ok {
		return identity.Subject
	}
	return ""
}
