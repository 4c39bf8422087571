// Package auth содержит логику бизнес-уровня для регистрации и входа пользователей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nelondlc/license-hub/internal/lib/jwt"
	"github.com/nelondlc/license-hub/internal/lib/password"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Ошибки уровня сервиса, транслируемые обработчиками в HTTP-статусы.
var (
	// ErrInvalidCredentials неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists имя пользователя или почта уже заняты.
	ErrUserExists = errors.New("username or email already taken")
	// ErrHWIDMismatch вход с устройства, отличного от привязанного.
	ErrHWIDMismatch = errors.New("hardware id mismatch")
)

// Сколько раз повторять вставку при гонке за следующий uid.
const maxUIDRetries = 3

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его внутренний ID.
	CreateUser(ctx context.Context, user models.User) (int64, error)
	// GetUserByLogin возвращает пользователя по имени или почте.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	// NextUID возвращает следующий свободный внешний идентификатор.
	NextUID(ctx context.Context) (int64, error)
	// UpdateLastLogin фиксирует момент последнего входа.
	UpdateLastLogin(ctx context.Context, id int64, at int64) error
	// BindHWID привязывает устройство к пользователю, если привязки ещё нет.
	BindHWID(ctx context.Context, id int64, hwid string) error
}

// AuthService отвечает за регистрацию, вход и выпуск JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// New создает новый экземпляр AuthService.
func New(users UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создает нового пользователя без подписки и сразу выдаёт JWT.
//
// Внешний uid выделяется как max(uid)+1; при одновременной регистрации
// двух пользователей вставка проигравшего завершится нарушением
// уникальности, и выделение повторяется с нуля — освободившиеся после
// удаления uid повторно не выдаются.
func (s *AuthService) Register(ctx context.Context, username, email, rawPassword string) (string, *models.PublicUser, error) {
	const op = "auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := models.User{
		Username:         username,
		Email:            email,
		PasswordHash:     hashed,
		CreatedAt:        now.UnixMilli(),
		SubscriptionTier: tier.None,
	}

	var id int64
	for attempt := 0; ; attempt++ {
		user.UID, err = s.users.NextUID(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
		id, err = s.users.CreateUser(ctx, user)
		if err == nil {
			break
		}
		if !errors.Is(err, storeerr.ErrAlreadyExists) {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
		// Нарушение уникальности: либо занято имя/почта, либо uid
		// перехвачен параллельной регистрацией.
		if s.loginTaken(ctx, username) || s.loginTaken(ctx, email) {
			return "", nil, ErrUserExists
		}
		if attempt >= maxUIDRetries {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Warn("uid collision, retrying registration",
			slog.Int64("uid", user.UID), slog.Int("attempt", attempt+1))
	}
	user.ID = id

	s.log.Info("user registered",
		slog.Int64("uid", user.UID), slog.String("username", username))

	token, err := s.jwtMaker.GenerateToken(user.ID, user.UID, user.Username, false)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	public := user.Public(now)
	return token, &public, nil
}

func (s *AuthService) loginTaken(ctx context.Context, login string) bool {
	_, err := s.users.GetUserByLogin(ctx, login)
	return err == nil
}

// Login проверяет пароль, сверяет привязку устройства и выдаёт JWT.
//
// Первый вход с непустым hwid привязывает устройство; последующие входы
// с другим hwid отклоняются. Пустой hwid (вход через сайт) привязку не
// трогает и не проверяется.
func (s *AuthService) Login(ctx context.Context, login, rawPassword, hwid string) (string, *models.PublicUser, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if hwid != "" {
		switch user.HWID {
		case "":
			if err := s.users.BindHWID(ctx, user.ID, hwid); err != nil {
				return "", nil, fmt.Errorf("%s: %w", op, err)
			}
			user.HWID = hwid
			s.log.Info("hardware id bound", slog.Int64("uid", user.UID))
		case hwid:
			// Привязанное устройство.
		default:
			s.log.Warn("login rejected: hardware id mismatch", slog.Int64("uid", user.UID))
			return "", nil, ErrHWIDMismatch
		}
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now.UnixMilli()); err != nil {
		s.log.Warn("failed to update last login", slog.Int64("uid", user.UID), sl.Err(err))
	}
	user.LastLogin = now.UnixMilli()

	token, err := s.jwtMaker.GenerateToken(user.ID, user.UID, user.Username, user.IsAdmin)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	public := user.Public(now)
	return token, &public, nil
}

// ValidateToken проверяет JWT и возвращает утверждения токена.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}
