// Package user содержит бизнес-логику личного кабинета: профиль,
// смена имени и пароля, срез состояния подписки.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nelondlc/license-hub/internal/lib/password"
	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
)

// ErrWrongPassword текущий пароль не подошёл при смене.
var ErrWrongPassword = errors.New("wrong current password")

// Время жизни кешированного среза подписки.
const subscriptionTTL = time.Minute

// UserRepository описывает методы хранилища, нужные личному кабинету.
type UserRepository interface {
	// GetUserByID возвращает пользователя по внутреннему ID.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// UpdateUsername меняет имя пользователя.
	UpdateUsername(ctx context.Context, id int64, username string) error
	// UpdatePasswordHash меняет хэш пароля.
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// UserService реализует операции личного кабинета.
type UserService struct {
	repo  UserRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр UserService.
func New(repo UserRepository, cache Cache, log *slog.Logger) *UserService {
	return &UserService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// SubscriptionCacheKey ключ кеша среза подписки пользователя.
func SubscriptionCacheKey(userID int64) string {
	return fmt.Sprintf("subscription:%d", userID)
}

// Profile возвращает публичное представление пользователя.
func (s *UserService) Profile(ctx context.Context, userID int64) (*models.PublicUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	public := user.Public(time.Now().UTC())
	return &public, nil
}

// UpdateUsername меняет имя пользователя.
func (s *UserService) UpdateUsername(ctx context.Context, userID int64, username string) error {
	if err := s.repo.UpdateUsername(ctx, userID, username); err != nil {
		return err
	}
	s.log.Info("username updated", slog.Int64("user_id", userID))
	return nil
}

// UpdatePassword меняет пароль после проверки текущего.
func (s *UserService) UpdatePassword(ctx context.Context, userID int64, current, next string) error {
	const op = "user.UpdatePassword"

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, current); err != nil {
		return ErrWrongPassword
	}
	hashed, err := password.GetHash(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password updated", slog.Int64("user_id", userID))
	return nil
}

// Subscription возвращает срез состояния подписки, используя кеш.
// Активность пересчитывается на каждый вызов, поэтому кеш хранит всего
// минуту: бессрочная запись пережила бы момент истечения подписки.
func (s *UserService) Subscription(ctx context.Context, userID int64) (*models.SubscriptionView, error) {
	var view *models.SubscriptionView
	cacheKey := SubscriptionCacheKey(userID)
	found, err := s.cache.Get(cacheKey, &view)
	if err != nil {
		s.log.Warn("cache read failed", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found && view != nil {
		return view, nil
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	t := user.SubscriptionTier
	if t == "" {
		t = tier.None
	}
	view = &models.SubscriptionView{
		Tier:      string(t),
		ExpiresAt: user.SubscriptionExpires,
		Active:    tier.IsActive(t, user.SubscriptionExpires, now),
	}
	if err := s.cache.Set(cacheKey, view, subscriptionTTL); err != nil {
		s.log.Warn("cache write failed", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return view, nil
}

// CanDownload сообщает, открыт ли пользователю доступ к загрузке лоадера.
func (s *UserService) CanDownload(ctx context.Context, userID int64) (bool, error) {
	view, err := s.Subscription(ctx, userID)
	if err != nil {
		return false, err
	}
	return view.Active, nil
}
