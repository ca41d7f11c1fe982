package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/cache"
	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

func TestCreateUserIsActiveAndUncached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())

	user, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.NotZero(t, user.ID)

	_, ok, _ := f.userCache.Get(ctx, user.ID)
	assert.False(t, ok)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())
	_, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)

	_, err = f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	assert.Equal(t, http.StatusConflict, apperrors.ToDomainError(err).HTTPStatus)
}

func TestGetUserReadsThroughOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())
	created, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := f.users.GetUser(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Email, got.Email)
	}
	assert.Equal(t, 1, f.store.userReads)
}

func TestGetUserNotFound(t *testing.T) {
	f := newFixture(cache.NewMemoryBackend())
	_, err := f.users.GetUser(context.Background(), 404)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateUserRefreshesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())
	created, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)
	_, err = f.users.GetUser(ctx, created.ID)
	require.NoError(t, err)

	input := sampleUser("anna.smith@example.com")
	input.Surname = "Jones"
	updated, err := f.users.UpdateUser(ctx, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Jones", updated.Surname)
	assert.True(t, updated.Active)

	cached, ok, _ := f.userCache.Get(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, "Jones", cached.Surname)
	assert.Equal(t, "anna.smith@example.com", cached.Email)
}

func TestUpdateUserFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())
	created, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)
	_, err = f.users.GetUser(ctx, created.ID)
	require.NoError(t, err)

	f.store.failWrite = assert.AnError
	_, err = f.users.UpdateUser(ctx, created.ID, sampleUser("other@example.com"))
	require.Error(t, err)

	cached, ok, _ := f.userCache.Get(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, "anna@example.com", cached.Email)
}

func TestUpdateMissingUser(t *testing.T) {
	f := newFixture(cache.NewMemoryBackend())
	_, err := f.users.UpdateUser(context.Background(), 77, sampleUser("x@example.com"))
	assert.True(t, apperrors.IsNotFound(err))

	_, ok, _ := f.userCache.Get(context.Background(), 77)
	assert.False(t, ok)
}

func TestDeleteUserEvictsUserAndCards(t *testing.T) {
	ctx := auth.WithCaller(context.Background(), auth.CallerIdentity{Subject: "root", Role: auth.RoleAdmin})
	f := newFixture(cache.NewMemoryBackend())
	user, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)
	card, err := f.cards.CreateCard(ctx, user.ID, sampleCard("4111111111111111"))
	require.NoError(t, err)
	_, err = f.users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	_, err = f.cards.GetCard(ctx, card.ID)
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteUser(ctx, user.ID))

	_, ok, _ := f.userCache.Get(ctx, user.ID)
	assert.False(t, ok)
	_, ok, _ = f.cardCache.Get(ctx, card.ID)
	assert.False(t, ok)
	_, err = f.users.GetUser(ctx, user.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.cards.GetCard(ctx, card.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteMissingUser(t *testing.T) {
	f := newFixture(cache.NewMemoryBackend())
	err := f.users.DeleteUser(context.Background(), 5)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSetUserActivePutsRefreshedRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())
	user, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)
	_, err = f.users.GetUser(ctx, user.ID)
	require.NoError(t, err)

	updated, err := f.users.SetUserActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	cached, ok, _ := f.userCache.Get(ctx, user.ID)
	require.True(t, ok)
	assert.False(t, cached.Active)
	assert.Equal(t, user.Email, cached.Email)
}

func TestUserServiceSurvivesCacheOutage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(downBackend{})

	user, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)
	got, err := f.users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.users.UpdateUser(ctx, user.ID, sampleUser("new@example.com"))
	require.NoError(t, err)
	_, err = f.users.SetUserActive(ctx, user.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.users.DeleteUser(ctx, user.ID))
}

func TestFindUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())
	for _, in := range []UserInput{
		{FirstName: "Anna", Surname: "Smith", Email: "a@x.io"},
		{FirstName: "Andrew", Surname: "Smart", Email: "b@x.io"},
		{FirstName: "Boris", Surname: "Smith", Email: "c@x.io"},
	} {
		_, err := f.users.CreateUser(ctx, in)
		require.NoError(t, err)
	}

	page, err := f.users.FindUsers(ctx, domain.UserFilter{FirstName: "an", Surname: "sm"}, domain.PageRequest{PageNo: 0, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.users.ListUsers(ctx, domain.PageRequest{PageNo: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Boris", page.Items[0].FirstName)
}

func TestListUsersRejectsBadPage(t *testing.T) {
	f := newFixture(cache.NewMemoryBackend())
	for _, page := range []domain.PageRequest{{PageNo: -1, PageSize: 10}, {PageNo: 0, PageSize: 0}, {PageNo: 0, PageSize: 1000}} {
		_, err := f.users.ListUsers(context.Background(), page)
		assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)
	}
}

func TestDeleteUserDuringCardReadLeavesNoStaleCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(cache.NewMemoryBackend())
	user, err := f.users.CreateUser(ctx, sampleUser("anna@example.com"))
	require.NoError(t, err)
	card, err := f.cards.CreateCard(ctx, user.ID, sampleCard("4111111111111111"))
	require.NoError(t, err)

	loaded := make(chan struct{})
	release := make(chan struct{})
	f.store.afterCardLoad = func() {
		close(loaded)
		<-release
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_, _ = f.cards.GetCard(ctx, card.ID)
	}()
	<-loaded
	f.store.mu.Lock()
	f.store.afterCardLoad = nil
	f.store.mu.Unlock()

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- f.users.DeleteUser(ctx, user.ID) }()

	time.Sleep(20 * time.Millisecond)
	close(release)
	<-readDone
	require.NoError(t, <-deleteDone)

	_, ok, err := f.cardCache.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
