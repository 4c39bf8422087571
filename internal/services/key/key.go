// Package key содержит бизнес-логику лицензионных ключей: выпуск
// администратором и одноразовую активацию пользователем.
package key

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nelondlc/license-hub/internal/lib/keygen"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/user"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// ErrUnknownTier запрошен выпуск ключа с нераспознанным уровнем подписки.
var ErrUnknownTier = errors.New("unknown subscription tier")

// Сколько раз перегенерировать ключ при коллизии строки.
const maxKeyRetries = 3

// Максимальный размер пакетного выпуска ключей за один запрос.
const MaxBatch = 100

// KeyRepository описывает методы хранилища для работы с ключами.
type KeyRepository interface {
	// CreateKey сохраняет новый ключ и возвращает его ID.
	CreateKey(ctx context.Context, key models.LicenseKey) (int64, error)
	// ActivateKey атомарно гасит ключ и выдаёт подписку пользователю.
	ActivateKey(ctx context.Context, keyStr string, userID int64, now time.Time) (tier.Tier, int64, error)
	// ListKeys возвращает ключи с именами создателя и потребителя.
	ListKeys(ctx context.Context, limit int) ([]*models.KeyInfo, error)
	// DeleteKey удаляет ключ по ID, возвращает число удалённых строк.
	DeleteKey(ctx context.Context, id int64) (int, error)
	// GetUserByID возвращает пользователя по внутреннему ID.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// KeyService реализует выпуск и активацию лицензионных ключей.
type KeyService struct {
	repo  KeyRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр KeyService.
func New(repo KeyRepository, cache Cache, log *slog.Logger) *KeyService {
	return &KeyService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Generate выпускает count ключей заданного уровня от имени администратора.
// Уровень нормализуется без учёта регистра; пустой или нераспознанный
// уровень отклоняется. Коллизия сгенерированной строки ключа устраняется
// перегенерацией.
func (s *KeyService) Generate(ctx context.Context, adminID int64, tierStr string, count int) ([]string, error) {
	const op = "key.Generate"

	t, ok := tier.Normalize(tierStr)
	if !ok || t == tier.None {
		return nil, ErrUnknownTier
	}
	if count < 1 {
		count = 1
	}
	if count > MaxBatch {
		count = MaxBatch
	}

	now := time.Now().UTC().UnixMilli()
	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var created bool
		for attempt := 0; attempt <= maxKeyRetries; attempt++ {
			code, err := keygen.New()
			if err != nil {
				return keys, fmt.Errorf("%s: %w", op, err)
			}
			_, err = s.repo.CreateKey(ctx, models.LicenseKey{
				Key:              code,
				SubscriptionType: t,
				CreatedAt:        now,
				CreatedBy:        adminID,
			})
			if err == nil {
				keys = append(keys, code)
				created = true
				break
			}
			if !errors.Is(err, storeerr.ErrAlreadyExists) {
				return keys, fmt.Errorf("%s: %w", op, err)
			}
			s.log.Warn("key collision, regenerating", slog.Int("attempt", attempt+1))
		}
		if !created {
			return keys, fmt.Errorf("%s: key space exhausted after retries", op)
		}
	}

	s.log.Info("license keys generated",
		slog.Int("count", len(keys)), slog.String("tier", string(t)),
		slog.Int64("admin_id", adminID))
	return keys, nil
}

// Activate активирует ключ для пользователя и возвращает обновлённый
// профиль. Использованный или несуществующий ключ даёт
// storeerr.ErrInvalidKey — наружу они неразличимы.
func (s *KeyService) Activate(ctx context.Context, userID int64, keyStr string) (*models.PublicUser, error) {
	const op = "key.Activate"

	now := time.Now().UTC()
	grantedTier, expiresAt, err := s.repo.ActivateKey(ctx, keyStr, userID, now)
	if err != nil {
		return nil, err
	}

	s.log.Info("license key activated",
		slog.Int64("user_id", userID),
		slog.String("tier", string(grantedTier)),
		slog.Int64("expires_at", expiresAt))

	cacheKey := user.SubscriptionCacheKey(userID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate subscription cache",
			slog.String("key", cacheKey), sl.Err(err))
	}

	updated, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	public := updated.Public(now)
	return &public, nil
}

// List возвращает ключи для админки, не более limit штук.
func (s *KeyService) List(ctx context.Context, limit int) ([]*models.KeyInfo, error) {
	return s.repo.ListKeys(ctx, limit)
}

// Delete удаляет ключ по ID; уже выданные этим ключом подписки не отзываются.
func (s *KeyService) Delete(ctx context.Context, id int64) (int, error) {
	count, err := s.repo.DeleteKey(ctx, id)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("license key deleted", slog.Int64("key_id", id))
	}
	return count, nil
}
