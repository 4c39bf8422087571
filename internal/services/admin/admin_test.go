package admin_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/admin"
)

// Мок для UserAdminRepository
type AdminRepoMock struct {
	mock.Mock
}

func (m *AdminRepoMock) ListUsers(ctx context.Context, limit int) ([]*models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *AdminRepoMock) SearchUsers(ctx context.Context, q string, uid int64, limit int) ([]*models.User, error) {
	args := m.Called(ctx, q, uid, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *AdminRepoMock) GetUserByUID(ctx context.Context, uid int64) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *AdminRepoMock) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	args := m.Called(ctx, id, isAdmin)
	return args.Error(0)
}

func (m *AdminRepoMock) SetSubscription(ctx context.Context, id int64, t tier.Tier, expiresAt int64) error {
	args := m.Called(ctx, id, t, expiresAt)
	return args.Error(0)
}

func (m *AdminRepoMock) ResetHWID(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *AdminRepoMock) DeleteUser(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *AdminRepoMock) HasAdmin(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *AdminRepoMock) CreateUser(ctx context.Context, u models.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func (m *AdminRepoMock) FirstFreeUID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Мок для Cache
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Invalidate(k string) error {
	args := m.Called(k)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(repo *AdminRepoMock, cache *CacheMock) *admin.AdminService {
	return admin.New(repo, cache, discardLogger())
}

func TestAdminService_ToggleAdmin(t *testing.T) {
	t.Run("выдача прав", func(t *testing.T) {
		repo := new(AdminRepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache)

		repo.On("GetUserByUID", mock.Anything, int64(7)).
			Return(&models.User{ID: 3, UID: 7, IsAdmin: false}, nil).Once()
		repo.On("SetAdmin", mock.Anything, int64(3), true).Return(nil).Once()

		public, err := svc.ToggleAdmin(context.Background(), 1, 7)
		assert.NoError(t, err)
		assert.True(t, public.IsAdmin)

		repo.AssertExpectations(t)
	})

	t.Run("самоснятие прав запрещено", func(t *testing.T) {
		repo := new(AdminRepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache)

		repo.On("GetUserByUID", mock.Anything, int64(7)).
			Return(&models.User{ID: 3, UID: 7, IsAdmin: true}, nil).Once()

		_, err := svc.ToggleAdmin(context.Background(), 3, 7)
		assert.ErrorIs(t, err, admin.ErrSelfDemotion)

		repo.AssertExpectations(t)
	})
}

func TestAdminService_GrantSubscription(t *testing.T) {
	tests := []struct {
		name        string
		tierStr     string
		expiresAt   int64
		wantTier    tier.Tier
		wantDefault bool
		wantErr     error
	}{
		{
			name:        "basic со сроком по умолчанию",
			tierStr:     "basic",
			expiresAt:   0,
			wantTier:    tier.Basic,
			wantDefault: true,
		},
		{
			name:      "явный срок сохраняется как есть",
			tierStr:   "Plus",
			expiresAt: 1893456000000,
			wantTier:  tier.Plus,
		},
		{
			name:      "lifetime бессрочен",
			tierStr:   "LIFETIME",
			expiresAt: 0,
			wantTier:  tier.Lifetime,
		},
		{
			name:    "нераспознанный уровень",
			tierStr: "platinum",
			wantErr: admin.ErrUnknownTier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(AdminRepoMock)
			cache := new(CacheMock)
			svc := newService(repo, cache)

			if tt.wantErr == nil {
				repo.On("GetUserByUID", mock.Anything, int64(7)).
					Return(&models.User{ID: 3, UID: 7}, nil).Once()
				repo.On("SetSubscription", mock.Anything, int64(3), tt.wantTier,
					mock.MatchedBy(func(expiresAt int64) bool {
						if tt.wantDefault {
							return expiresAt > time.Now().UnixMilli()
						}
						if tt.expiresAt == 0 {
							return expiresAt == tier.NoExpiry
						}
						return expiresAt == tt.expiresAt
					})).Return(nil).Once()
				cache.On("Invalidate", "subscription:3").Return(nil).Once()
			}

			public, err := svc.GrantSubscription(context.Background(), 7, tt.tierStr, tt.expiresAt)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, string(tt.wantTier), public.SubscriptionTier)
				assert.True(t, public.SubscriptionActive)
			}

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestAdminService_ClearSubscription(t *testing.T) {
	repo := new(AdminRepoMock)
	cache := new(CacheMock)
	svc := newService(repo, cache)

	repo.On("GetUserByUID", mock.Anything, int64(7)).
		Return(&models.User{ID: 3, UID: 7, SubscriptionTier: tier.Plus}, nil).Once()
	repo.On("SetSubscription", mock.Anything, int64(3), tier.None, tier.NoExpiry).
		Return(nil).Once()
	cache.On("Invalidate", "subscription:3").Return(nil).Once()

	public, err := svc.ClearSubscription(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, string(tier.None), public.SubscriptionTier)
	assert.False(t, public.SubscriptionActive)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestAdminService_DeleteUser(t *testing.T) {
	t.Run("удаление чужой учётки", func(t *testing.T) {
		repo := new(AdminRepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache)

		repo.On("GetUserByUID", mock.Anything, int64(7)).
			Return(&models.User{ID: 3, UID: 7}, nil).Once()
		repo.On("DeleteUser", mock.Anything, int64(3)).Return(1, nil).Once()
		cache.On("Invalidate", "subscription:3").Return(nil).Once()

		count, err := svc.DeleteUser(context.Background(), 1, 7)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)

		repo.AssertExpectations(t)
	})

	t.Run("самоудаление запрещено", func(t *testing.T) {
		repo := new(AdminRepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache)

		repo.On("GetUserByUID", mock.Anything, int64(7)).
			Return(&models.User{ID: 3, UID: 7}, nil).Once()

		_, err := svc.DeleteUser(context.Background(), 3, 7)
		assert.ErrorIs(t, err, admin.ErrSelfDemotion)

		repo.AssertExpectations(t)
	})
}

func TestAdminService_SeedAdmin(t *testing.T) {
	t.Run("создаётся при отсутствии администраторов", func(t *testing.T) {
		repo := new(AdminRepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache)

		repo.On("HasAdmin", mock.Anything).Return(false, nil).Once()
		repo.On("FirstFreeUID", mock.Anything).Return(int64(1), nil).Once()
		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.IsAdmin &&
				u.Username == "admin" &&
				u.SubscriptionTier == tier.Lifetime &&
				u.SubscriptionExpires == tier.NoExpiry
		})).Return(int64(1), nil).Once()

		err := svc.SeedAdmin(context.Background(), "admin", "admin@example.com", "changeme")
		assert.NoError(t, err)

		repo.AssertExpectations(t)
	})

	t.Run("ничего не делает, если администратор уже есть", func(t *testing.T) {
		repo := new(AdminRepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache)

		repo.On("HasAdmin", mock.Anything).Return(true, nil).Once()

		err := svc.SeedAdmin(context.Background(), "admin", "admin@example.com", "changeme")
		assert.NoError(t, err)

		repo.AssertExpectations(t)
	})
}
