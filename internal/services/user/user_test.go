package user_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nelondlc/license-hub/internal/lib/password"
	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/user"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateUsername(ctx context.Context, id int64, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

func (m *UserRepoMock) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

// Мок для Cache
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUserService_Subscription(t *testing.T) {
	t.Run("промах кеша: срез читается из хранилища и кешируется", func(t *testing.T) {
		repo := new(UserRepoMock)
		cache := new(CacheMock)
		svc := user.New(repo, cache, discardLogger())

		expiresAt := time.Now().UTC().AddDate(0, 0, 30).UnixMilli()
		cache.On("Get", "subscription:3", mock.Anything).Return(false, nil).Once()
		repo.On("GetUserByID", mock.Anything, int64(3)).Return(&models.User{
			ID:                  3,
			SubscriptionTier:    tier.Plus,
			SubscriptionExpires: expiresAt,
		}, nil).Once()
		cache.On("Set", "subscription:3", mock.Anything, mock.Anything).Return(nil).Once()

		view, err := svc.Subscription(context.Background(), 3)
		assert.NoError(t, err)
		assert.Equal(t, string(tier.Plus), view.Tier)
		assert.True(t, view.Active)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("попадание в кеш не трогает хранилище", func(t *testing.T) {
		repo := new(UserRepoMock)
		cache := new(CacheMock)
		svc := user.New(repo, cache, discardLogger())

		cached := &models.SubscriptionView{Tier: string(tier.Lifetime), Active: true}
		cache.On("Get", "subscription:3", mock.Anything).
			Run(func(args mock.Arguments) {
				ptr := args.Get(1).(**models.SubscriptionView)
				*ptr = cached
			}).Return(true, nil).Once()

		view, err := svc.Subscription(context.Background(), 3)
		assert.NoError(t, err)
		assert.Equal(t, cached, view)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("пустой уровень трактуется как none", func(t *testing.T) {
		repo := new(UserRepoMock)
		cache := new(CacheMock)
		svc := user.New(repo, cache, discardLogger())

		cache.On("Get", "subscription:3", mock.Anything).Return(false, nil).Once()
		repo.On("GetUserByID", mock.Anything, int64(3)).
			Return(&models.User{ID: 3}, nil).Once()
		cache.On("Set", "subscription:3", mock.Anything, mock.Anything).Return(nil).Once()

		view, err := svc.Subscription(context.Background(), 3)
		assert.NoError(t, err)
		assert.Equal(t, string(tier.None), view.Tier)
		assert.False(t, view.Active)
	})
}

func TestUserService_UpdatePassword(t *testing.T) {
	current := "oldpassword"
	hashed, err := password.GetHash(current)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	t.Run("успешная смена", func(t *testing.T) {
		repo := new(UserRepoMock)
		cache := new(CacheMock)
		svc := user.New(repo, cache, discardLogger())

		repo.On("GetUserByID", mock.Anything, int64(3)).
			Return(&models.User{ID: 3, PasswordHash: hashed}, nil).Once()
		repo.On("UpdatePasswordHash", mock.Anything, int64(3),
			mock.MatchedBy(func(hash string) bool { return hash != "" && hash != hashed })).
			Return(nil).Once()

		err := svc.UpdatePassword(context.Background(), 3, current, "newpassword")
		assert.NoError(t, err)

		repo.AssertExpectations(t)
	})

	t.Run("неверный текущий пароль", func(t *testing.T) {
		repo := new(UserRepoMock)
		cache := new(CacheMock)
		svc := user.New(repo, cache, discardLogger())

		repo.On("GetUserByID", mock.Anything, int64(3)).
			Return(&models.User{ID: 3, PasswordHash: hashed}, nil).Once()

		err := svc.UpdatePassword(context.Background(), 3, "wrongpassword", "newpassword")
		assert.ErrorIs(t, err, user.ErrWrongPassword)

		repo.AssertExpectations(t)
	})
}
