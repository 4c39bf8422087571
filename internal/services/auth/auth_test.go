package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	customjwt "github.com/nelondlc/license-hub/internal/lib/jwt"
	"github.com/nelondlc/license-hub/internal/lib/password"
	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/auth"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepoMock) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) NextUID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepoMock) UpdateLastLogin(ctx context.Context, id int64, at int64) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *UserRepoMock) BindHWID(ctx context.Context, id int64, hwid string) error {
	args := m.Called(ctx, id, hwid)
	return args.Error(0)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userID int64, uid int64, username string, isAdmin bool) (string, error) {
	args := m.Called(userID, uid, username, isAdmin)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		email      string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantUID    int64
		wantErr    error
	}{
		{
			name:     "успешная регистрация",
			username: "testuser",
			email:    "test@example.com",
			password: "password123",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("NextUID", mock.Anything).Return(int64(7), nil).Once()
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Username == "testuser" &&
						user.Email == "test@example.com" &&
						user.PasswordHash != "" &&
						user.UID == 7 &&
						user.SubscriptionTier == tier.None
				})).Return(int64(3), nil).Once()
				j.On("GenerateToken", int64(3), int64(7), "testuser", false).
					Return("jwt-token-123", nil).Once()
			},
			wantUID: 7,
		},
		{
			name:     "гонка за uid: повтор с новым значением",
			username: "testuser",
			email:    "test@example.com",
			password: "password123",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("NextUID", mock.Anything).Return(int64(7), nil).Once()
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.UID == 7
				})).Return(int64(0), storeerr.ErrAlreadyExists).Once()
				// имя и почта свободны — коллизия по uid
				r.On("GetUserByLogin", mock.Anything, "testuser").
					Return(nil, storeerr.ErrNotFound).Once()
				r.On("GetUserByLogin", mock.Anything, "test@example.com").
					Return(nil, storeerr.ErrNotFound).Once()
				r.On("NextUID", mock.Anything).Return(int64(8), nil).Once()
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.UID == 8
				})).Return(int64(4), nil).Once()
				j.On("GenerateToken", int64(4), int64(8), "testuser", false).
					Return("jwt-token-123", nil).Once()
			},
			wantUID: 8,
		},
		{
			name:     "имя занято",
			username: "testuser",
			email:    "test@example.com",
			password: "password123",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("NextUID", mock.Anything).Return(int64(7), nil).Once()
				r.On("CreateUser", mock.Anything, mock.Anything).
					Return(int64(0), storeerr.ErrAlreadyExists).Once()
				r.On("GetUserByLogin", mock.Anything, "testuser").
					Return(&models.User{ID: 1, Username: "testuser"}, nil).Once()
			},
			wantErr: auth.ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := auth.New(repo, jwtMock, discardLogger())

			tt.setupMocks(repo, jwtMock)

			token, public, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "jwt-token-123", token)
				assert.Equal(t, tt.wantUID, public.UID)
				assert.False(t, public.SubscriptionActive)
			}

			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	rawPassword := "correctpassword"
	hashedPassword, err := password.GetHash(rawPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	makeUser := func(hwid string) *models.User {
		return &models.User{
			ID:           3,
			UID:          7,
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: hashedPassword,
			HWID:         hwid,
		}
	}

	tests := []struct {
		name       string
		login      string
		password   string
		hwid       string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantErr    error
	}{
		{
			name:     "успешный вход без hwid",
			login:    "testuser",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByLogin", mock.Anything, "testuser").Return(makeUser(""), nil).Once()
				r.On("UpdateLastLogin", mock.Anything, int64(3), mock.Anything).Return(nil).Once()
				j.On("GenerateToken", int64(3), int64(7), "testuser", false).
					Return("jwt-token-123", nil).Once()
			},
		},
		{
			name:     "первый вход привязывает устройство",
			login:    "testuser",
			password: rawPassword,
			hwid:     "device-1",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByLogin", mock.Anything, "testuser").Return(makeUser(""), nil).Once()
				r.On("BindHWID", mock.Anything, int64(3), "device-1").Return(nil).Once()
				r.On("UpdateLastLogin", mock.Anything, int64(3), mock.Anything).Return(nil).Once()
				j.On("GenerateToken", int64(3), int64(7), "testuser", false).
					Return("jwt-token-123", nil).Once()
			},
		},
		{
			name:     "вход с чужого устройства отклоняется",
			login:    "testuser",
			password: rawPassword,
			hwid:     "device-2",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByLogin", mock.Anything, "testuser").Return(makeUser("device-1"), nil).Once()
			},
			wantErr: auth.ErrHWIDMismatch,
		},
		{
			name:     "неверный пароль",
			login:    "testuser",
			password: "wrongpassword",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByLogin", mock.Anything, "testuser").Return(makeUser(""), nil).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "пользователь не найден",
			login:    "nonexistent",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByLogin", mock.Anything, "nonexistent").
					Return(nil, storeerr.ErrNotFound).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := auth.New(repo, jwtMock, discardLogger())

			tt.setupMocks(repo, jwtMock)

			token, public, err := svc.Login(context.Background(), tt.login, tt.password, tt.hwid)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "jwt-token-123", token)
				assert.Equal(t, int64(7), public.UID)
				assert.NotZero(t, public.LastLogin)
			}

			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}
