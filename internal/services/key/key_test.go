package key_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/key"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Мок для KeyRepository
type KeyRepoMock struct {
	mock.Mock
}

func (m *KeyRepoMock) CreateKey(ctx context.Context, k models.LicenseKey) (int64, error) {
	args := m.Called(ctx, k)
	return args.Get(0).(int64), args.Error(1)
}

func (m *KeyRepoMock) ActivateKey(ctx context.Context, keyStr string, userID int64, now time.Time) (tier.Tier, int64, error) {
	args := m.Called(ctx, keyStr, userID, now)
	return args.Get(0).(tier.Tier), args.Get(1).(int64), args.Error(2)
}

func (m *KeyRepoMock) ListKeys(ctx context.Context, limit int) ([]*models.KeyInfo, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.KeyInfo), args.Error(1)
}

func (m *KeyRepoMock) DeleteKey(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *KeyRepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
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

func TestKeyService_Generate(t *testing.T) {
	tests := []struct {
		name       string
		tierStr    string
		count      int
		setupMocks func(r *KeyRepoMock)
		wantCount  int
		wantErr    error
	}{
		{
			name:    "выпуск трёх ключей plus",
			tierStr: "plus",
			count:   3,
			setupMocks: func(r *KeyRepoMock) {
				r.On("CreateKey", mock.Anything, mock.MatchedBy(func(k models.LicenseKey) bool {
					return k.SubscriptionType == tier.Plus && k.CreatedBy == 1 && k.Key != ""
				})).Return(int64(1), nil).Times(3)
			},
			wantCount: 3,
		},
		{
			name:    "нераспознанный уровень",
			tierStr: "platinum",
			count:   1,
			setupMocks: func(_ *KeyRepoMock) {},
			wantErr:    key.ErrUnknownTier,
		},
		{
			name:    "нулевой счётчик поднимается до единицы",
			tierStr: "Lifetime",
			count:   0,
			setupMocks: func(r *KeyRepoMock) {
				r.On("CreateKey", mock.Anything, mock.Anything).Return(int64(1), nil).Once()
			},
			wantCount: 1,
		},
		{
			name:    "коллизия строки ключа устраняется перегенерацией",
			tierStr: "basic",
			count:   1,
			setupMocks: func(r *KeyRepoMock) {
				r.On("CreateKey", mock.Anything, mock.Anything).
					Return(int64(0), storeerr.ErrAlreadyExists).Once()
				r.On("CreateKey", mock.Anything, mock.Anything).Return(int64(1), nil).Once()
			},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(KeyRepoMock)
			cache := new(CacheMock)
			svc := key.New(repo, cache, discardLogger())

			tt.setupMocks(repo)

			keys, err := svc.Generate(context.Background(), 1, tt.tierStr, tt.count)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Len(t, keys, tt.wantCount)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestKeyService_Activate(t *testing.T) {
	t.Run("успешная активация возвращает обновлённый профиль", func(t *testing.T) {
		repo := new(KeyRepoMock)
		cache := new(CacheMock)
		svc := key.New(repo, cache, discardLogger())

		expiresAt := time.Now().UTC().AddDate(0, 0, 30).UnixMilli()
		repo.On("ActivateKey", mock.Anything, "AAAA-BBBB-CCCC", int64(3), mock.Anything).
			Return(tier.Basic, expiresAt, nil).Once()
		cache.On("Invalidate", "subscription:3").Return(nil).Once()
		repo.On("GetUserByID", mock.Anything, int64(3)).Return(&models.User{
			ID:                  3,
			UID:                 7,
			Username:            "testuser",
			SubscriptionTier:    tier.Basic,
			SubscriptionExpires: expiresAt,
		}, nil).Once()

		public, err := svc.Activate(context.Background(), 3, "AAAA-BBBB-CCCC")
		assert.NoError(t, err)
		assert.Equal(t, string(tier.Basic), public.SubscriptionTier)
		assert.True(t, public.SubscriptionActive)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("использованный ключ отклоняется", func(t *testing.T) {
		repo := new(KeyRepoMock)
		cache := new(CacheMock)
		svc := key.New(repo, cache, discardLogger())

		repo.On("ActivateKey", mock.Anything, "AAAA-BBBB-CCCC", int64(3), mock.Anything).
			Return(tier.None, int64(0), storeerr.ErrInvalidKey).Once()

		_, err := svc.Activate(context.Background(), 3, "AAAA-BBBB-CCCC")
		assert.ErrorIs(t, err, storeerr.ErrInvalidKey)

		repo.AssertExpectations(t)
	})
}

// onceRepo воспроизводит семантику условного обновления хранилища:
// первый вызов ActivateKey гасит ключ, остальные получают ErrInvalidKey.
type onceRepo struct {
	KeyRepoMock
	mu   sync.Mutex
	used bool
}

func (r *onceRepo) ActivateKey(_ context.Context, _ string, _ int64, now time.Time) (tier.Tier, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used {
		return tier.None, 0, storeerr.ErrInvalidKey
	}
	r.used = true
	return tier.Basic, tier.DefaultExpiry(tier.Basic, now), nil
}

func (r *onceRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, UID: id, SubscriptionTier: tier.Basic}, nil
}

func TestKeyService_Activate_Concurrent(t *testing.T) {
	repo := &onceRepo{}
	cache := new(CacheMock)
	cache.On("Invalidate", mock.Anything).Return(nil)
	svc := key.New(repo, cache, discardLogger())

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Activate(context.Background(), userID, "AAAA-BBBB-CCCC")
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, storeerr.ErrInvalidKey):
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded, "ключ одноразовый: ровно одна активация успешна")
	assert.Equal(t, workers-1, rejected)
}
