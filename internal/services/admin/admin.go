// Package admin содержит бизнес-логику панели администратора: управление
// пользователями, их подписками и привязкой устройств.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nelondlc/license-hub/internal/lib/password"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/user"
)

// Ошибки уровня сервиса.
var (
	// ErrSelfDemotion администратор пытается снять права или удалить сам себя.
	ErrSelfDemotion = errors.New("cannot change own account")
	// ErrUnknownTier нераспознанный уровень подписки.
	ErrUnknownTier = errors.New("unknown subscription tier")
)

// Ограничение выдачи списков админки по умолчанию.
const defaultListLimit = 100

// UserAdminRepository описывает методы хранилища для операций админки.
type UserAdminRepository interface {
	// ListUsers возвращает пользователей, новые первыми.
	ListUsers(ctx context.Context, limit int) ([]*models.User, error)
	// SearchUsers ищет пользователей по подстроке имени/почты или точному uid.
	SearchUsers(ctx context.Context, q string, uid int64, limit int) ([]*models.User, error)
	// GetUserByUID возвращает пользователя по внешнему идентификатору.
	GetUserByUID(ctx context.Context, uid int64) (*models.User, error)
	// SetAdmin выставляет или снимает признак администратора.
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	// SetSubscription выставляет уровень и срок подписки.
	SetSubscription(ctx context.Context, id int64, t tier.Tier, expiresAt int64) error
	// ResetHWID сбрасывает привязку устройства.
	ResetHWID(ctx context.Context, id int64) error
	// DeleteUser удаляет пользователя, возвращает число удалённых строк.
	DeleteUser(ctx context.Context, id int64) (int, error)
	// HasAdmin сообщает, есть ли в системе хотя бы один администратор.
	HasAdmin(ctx context.Context) (bool, error)
	// CreateUser сохраняет нового пользователя и возвращает его ID.
	CreateUser(ctx context.Context, u models.User) (int64, error)
	// FirstFreeUID возвращает наименьший свободный внешний идентификатор.
	FirstFreeUID(ctx context.Context) (int64, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// AdminService реализует операции панели администратора.
type AdminService struct {
	repo  UserAdminRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр AdminService.
func New(repo UserAdminRepository, cache Cache, log *slog.Logger) *AdminService {
	return &AdminService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// ListUsers возвращает публичные представления пользователей, новые первыми.
func (s *AdminService) ListUsers(ctx context.Context, limit int) ([]models.PublicUser, error) {
	if limit < 1 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	users, err := s.repo.ListUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toPublic(users), nil
}

// SearchUsers ищет пользователей по подстроке имени/почты или точному uid.
func (s *AdminService) SearchUsers(ctx context.Context, query string, uid int64) ([]models.PublicUser, error) {
	users, err := s.repo.SearchUsers(ctx, query, uid, defaultListLimit)
	if err != nil {
		return nil, err
	}
	return toPublic(users), nil
}

func toPublic(users []*models.User) []models.PublicUser {
	now := time.Now().UTC()
	result := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		result = append(result, u.Public(now))
	}
	return result
}

// ToggleAdmin переключает признак администратора у пользователя с
// заданным uid. Администратор не может снять права сам с себя.
func (s *AdminService) ToggleAdmin(ctx context.Context, actorID, targetUID int64) (*models.PublicUser, error) {
	const op = "admin.ToggleAdmin"

	target, err := s.repo.GetUserByUID(ctx, targetUID)
	if err != nil {
		return nil, err
	}
	if target.ID == actorID {
		return nil, ErrSelfDemotion
	}
	if err := s.repo.SetAdmin(ctx, target.ID, !target.IsAdmin); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	target.IsAdmin = !target.IsAdmin

	s.log.Info("admin flag toggled",
		slog.Int64("uid", targetUID), slog.Bool("is_admin", target.IsAdmin))

	public := target.Public(time.Now().UTC())
	return &public, nil
}

// GrantSubscription выдаёт пользователю подписку уровня tierStr.
// Нулевой expiresAt заменяется сроком по умолчанию для уровня; явный
// expiresAt сохраняется как есть.
func (s *AdminService) GrantSubscription(ctx context.Context, targetUID int64, tierStr string, expiresAt int64) (*models.PublicUser, error) {
	const op = "admin.GrantSubscription"

	t, ok := tier.Normalize(tierStr)
	if !ok || t == tier.None {
		return nil, ErrUnknownTier
	}

	target, err := s.repo.GetUserByUID(ctx, targetUID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if expiresAt == 0 {
		expiresAt = tier.DefaultExpiry(t, now)
	}
	if err := s.repo.SetSubscription(ctx, target.ID, t, expiresAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	target.SubscriptionTier = t
	target.SubscriptionExpires = expiresAt
	s.invalidateSubscription(target.ID)

	s.log.Info("subscription granted",
		slog.Int64("uid", targetUID),
		slog.String("tier", string(t)),
		slog.Int64("expires_at", expiresAt))

	public := target.Public(now)
	return &public, nil
}

// ClearSubscription снимает подписку пользователя.
func (s *AdminService) ClearSubscription(ctx context.Context, targetUID int64) (*models.PublicUser, error) {
	const op = "admin.ClearSubscription"

	target, err := s.repo.GetUserByUID(ctx, targetUID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetSubscription(ctx, target.ID, tier.None, tier.NoExpiry); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	target.SubscriptionTier = tier.None
	target.SubscriptionExpires = tier.NoExpiry
	s.invalidateSubscription(target.ID)

	s.log.Info("subscription cleared", slog.Int64("uid", targetUID))

	public := target.Public(time.Now().UTC())
	return &public, nil
}

// ResetHWID сбрасывает привязку устройства у пользователя.
func (s *AdminService) ResetHWID(ctx context.Context, targetUID int64) error {
	target, err := s.repo.GetUserByUID(ctx, targetUID)
	if err != nil {
		return err
	}
	if err := s.repo.ResetHWID(ctx, target.ID); err != nil {
		return err
	}
	s.log.Info("hardware id reset", slog.Int64("uid", targetUID))
	return nil
}

// DeleteUser удаляет пользователя вместе с его постами и лайками.
// Администратор не может удалить сам себя.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, targetUID int64) (int, error) {
	target, err := s.repo.GetUserByUID(ctx, targetUID)
	if err != nil {
		return 0, err
	}
	if target.ID == actorID {
		return 0, ErrSelfDemotion
	}
	count, err := s.repo.DeleteUser(ctx, target.ID)
	if err != nil {
		return 0, err
	}
	s.invalidateSubscription(target.ID)
	s.log.Info("user deleted", slog.Int64("uid", targetUID))
	return count, nil
}

// SeedAdmin создаёт стартового администратора с бессрочной подпиской
// высшего уровня, если в системе ещё нет ни одного администратора.
func (s *AdminService) SeedAdmin(ctx context.Context, username, email, rawPassword string) error {
	const op = "admin.SeedAdmin"

	exists, err := s.repo.HasAdmin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	uid, err := s.repo.FirstFreeUID(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = s.repo.CreateUser(ctx, models.User{
		UID:                 uid,
		Username:            username,
		Email:               email,
		PasswordHash:        hashed,
		IsAdmin:             true,
		CreatedAt:           time.Now().UTC().UnixMilli(),
		SubscriptionTier:    tier.Lifetime,
		SubscriptionExpires: tier.NoExpiry,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("seed admin created", slog.String("username", username))
	return nil
}

func (s *AdminService) invalidateSubscription(userID int64) {
	cacheKey := user.SubscriptionCacheKey(userID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate subscription cache",
			slog.String("key", cacheKey), sl.Err(err))
	}
}
