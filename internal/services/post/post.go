// Package post содержит бизнес-логику форума конфигов: публикация,
// просмотр и лайки постов.
package post

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nelondlc/license-hub/internal/models"
)

// ErrUnknownServer пост привязан к серверу вне допустимого списка.
var ErrUnknownServer = errors.New("unknown game server")

// Ограничения выдачи: публичная лента и модерационный список админ-панели.
const (
	defaultListLimit    = 50
	moderationListLimit = 500
)

// allowedServers игровые серверы, для которых принимаются конфиги.
var allowedServers = map[string]struct{}{
	"Reallyworld": {},
	"SpookyTime":  {},
	"HolyWorld":   {},
	"F0nTimE":     {},
}

// PostRepository описывает методы хранилища для работы с постами.
type PostRepository interface {
	// CreatePost сохраняет новый пост и возвращает его ID.
	CreatePost(ctx context.Context, post models.Post) (int64, error)
	// ListPosts возвращает посты с данными автора, новые первыми.
	ListPosts(ctx context.Context, limit int) ([]*models.PostInfo, error)
	// ReadPost возвращает пост и увеличивает счётчик просмотров.
	ReadPost(ctx context.Context, id int64) (*models.PostInfo, error)
	// ToggleLike ставит или снимает лайк, возвращает новое число лайков.
	ToggleLike(ctx context.Context, userID, postID int64, at int64) (int64, error)
	// DeletePost удаляет пост, возвращает число удалённых строк.
	DeletePost(ctx context.Context, id int64) (int, error)
}

// PostService реализует операции форума.
type PostService struct {
	repo PostRepository
	log  *slog.Logger
}

// New создает новый экземпляр PostService.
func New(repo PostRepository, log *slog.Logger) *PostService {
	return &PostService{repo: repo, log: log}
}

// Create публикует пост от имени пользователя и возвращает его ID.
// Сервер должен входить в список поддерживаемых, иначе ErrUnknownServer.
func (s *PostService) Create(ctx context.Context, userID int64, server, title, description, screenshot, downloadURL string) (int64, error) {
	if _, ok := allowedServers[server]; !ok {
		return 0, ErrUnknownServer
	}
	post := models.Post{
		UserID:         userID,
		Server:         server,
		Title:          title,
		Description:    description,
		ScreenshotPath: screenshot,
		DownloadURL:    downloadURL,
		CreatedAt:      time.Now().UTC().UnixMilli(),
	}
	id, err := s.repo.CreatePost(ctx, post)
	if err != nil {
		return 0, err
	}
	s.log.Info("post created", slog.Int64("post_id", id), slog.Int64("user_id", userID))
	return id, nil
}

// List возвращает ленту постов, новые первыми.
func (s *PostService) List(ctx context.Context, limit int) ([]*models.PostInfo, error) {
	if limit < 1 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.repo.ListPosts(ctx, limit)
}

// ListAll возвращает посты для модерации в админ-панели, новые первыми.
func (s *PostService) ListAll(ctx context.Context) ([]*models.PostInfo, error) {
	return s.repo.ListPosts(ctx, moderationListLimit)
}

// Read возвращает пост по ID, засчитывая просмотр.
func (s *PostService) Read(ctx context.Context, id int64) (*models.PostInfo, error) {
	return s.repo.ReadPost(ctx, id)
}

// ToggleLike переключает лайк пользователя и возвращает новое число лайков.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID int64) (int64, error) {
	return s.repo.ToggleLike(ctx, userID, postID, time.Now().UTC().UnixMilli())
}

// Delete удаляет пост по ID.
func (s *PostService) Delete(ctx context.Context, id int64) (int, error) {
	count, err := s.repo.DeletePost(ctx, id)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("post deleted", slog.Int64("post_id", id))
	}
	return count, nil
}
