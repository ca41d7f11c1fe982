package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/cache"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/worker"
)

type fixture struct {
	store     *memStore
	users     *UserService
	cards     *CardService
	userCache *cache.AggregateCache[domain.User]
	cardCache *cache.AggregateCache[domain.PaymentCard]
}

func newFixture(backend cache.Backend) *fixture {
	store := newMemStore()
	logger := zap.NewNop()
	userCache := cache.NewAggregateCache[domain.User](backend, "user", 10*time.Minute)
	cardCache := cache.NewAggregateCache[domain.PaymentCard](backend, "card", 10*time.Minute)
	userCoord := cache.NewCoordinator(userCache, logger, nil)
	cardCoord := cache.NewCoordinator(cardCache, logger, nil)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartCacheInvalidationWorker(dispatcher, cardCoord, logger)

	return &fixture{
		store: store,
		users: NewUserService(UserDependencies{
			UserRepo:   fakeUserRepo{store},
			UserCache:  userCoord,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		cards: NewCardService(CardDependencies{
			CardRepo:   fakeCardRepo{store},
			UserRepo:   fakeUserRepo{store},
			CardCache:  cardCoord,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		userCache: userCache,
		cardCache: cardCache,
	}
}

func sampleUser(email string) UserInput {
	return UserInput{
		FirstName: "Anna",
		Surname:   "Smith",
		Email:     email,
		BirthDate: time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func sampleCard(number string) CardInput {
	return CardInput{
		Holder:         "ANNA SMITH",
		Number:         number,
		ExpirationDate: time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}
