package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
)

// memStore backs both fake repositories so deletes cascade like the schema does.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]domain.User
	cards     map[int64]domain.PaymentCard
	userReads int
	cardReads int
	failWrite error
	// afterCardLoad runs once a card row has been read, outside the store lock.
	afterCardLoad func()
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]domain.User{}, cards: map[int64]domain.PaymentCard{}}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

type fakeUserRepo struct{ *memStore }

func (r fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	stored, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.FirstName, stored.Surname, stored.Email, stored.BirthDate = user.FirstName, user.Surname, user.Email, user.BirthDate
	stored.UpdatedAt = time.Now()
	r.users[user.ID] = stored
	*user = stored
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userReads++
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUserRepo) Delete(_ context.Context, id int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return nil, pgx.ErrNoRows
	}
	delete(r.users, id)
	var removed []int64
	for cid, c := range r.cards {
		if c.UserID == id {
			delete(r.cards, cid)
			removed = append(removed, cid)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed, nil
}

func (r fakeUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Active = active
	r.users[id] = u
	return nil
}

func (r fakeUserRepo) List(_ context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.User
	for _, u := range r.users {
		if filter.FirstName != "" && !strings.HasPrefix(strings.ToLower(u.FirstName), strings.ToLower(filter.FirstName)) {
			continue
		}
		if filter.Surname != "" && !strings.HasPrefix(strings.ToLower(u.Surname), strings.ToLower(filter.Surname)) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

type fakeCardRepo struct{ *memStore }

func (r fakeCardRepo) CreateForUser(_ context.Context, card *domain.PaymentCard, maxPerUser int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[card.UserID]; !ok {
		return pgx.ErrNoRows
	}
	count := 0
	for _, c := range r.cards {
		if c.UserID == card.UserID {
			count++
		}
	}
	if count >= maxPerUser {
		return repository.ErrCardLimitReached
	}
	card.ID = r.id()
	r.cards[card.ID] = *card
	return nil
}

func (r fakeCardRepo) Update(_ context.Context, card *domain.PaymentCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	stored, ok := r.cards[card.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Holder, stored.ExpirationDate = card.Holder, card.ExpirationDate
	r.cards[card.ID] = stored
	*card = stored
	return nil
}

func (r fakeCardRepo) GetByID(_ context.Context, id int64) (*domain.PaymentCard, error) {
	r.mu.Lock()
	r.cardReads++
	c, ok := r.cards[id]
	hook := r.afterCardLoad
	r.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if hook != nil {
		hook()
	}
	return &c, nil
}

func (r fakeCardRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cards[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.cards, id)
	return nil
}

func (r fakeCardRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Active = active
	r.cards[id] = c
	return nil
}

func (r fakeCardRepo) ListByUser(_ context.Context, userID int64) ([]domain.PaymentCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.PaymentCard{}
	for _, c := range r.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeCardRepo) List(_ context.Context, page domain.PageRequest) ([]domain.PaymentCard, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.PaymentCard{}
	for _, c := range r.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	start := page.Offset()
	if start > len(out) {
		start = len(out)
	}
	end := start + page.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], int64(len(out)), nil
}

func (r fakeCardRepo) FindByHolderOrNumber(_ context.Context, holder, number string) (*domain.PaymentCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.PaymentCard
	for _, c := range r.cards {
		if c.Holder == holder || c.Number == number {
			if best == nil || c.ID < best.ID {
				found := c
				best = &found
			}
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	return best, nil
}

func (r fakeCardRepo) ExistsByNumber(_ context.Context, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cards {
		if c.Number == number {
			return true, nil
		}
	}
	return false, nil
}

// downBackend simulates an unreachable cache.
type downBackend struct{}

var errCacheDown = errors.New("dial tcp: connection refused")

func (downBackend) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (downBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (downBackend) Delete(context.Context, string) error { return errCacheDown }
