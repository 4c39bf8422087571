package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// postInfoColumns колонки поста с автором и количеством лайков.
const postInfoColumns = `p.id, p.server, p.title, p.description, p.screenshot_path,
			      p.download_url, p.view_count, p.created_at,
			      u.uid, u.username, u.avatar_url,
			      (SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id)`

func scanPostInfo(row interface{ Scan(...any) error }) (*models.PostInfo, error) {
	var (
		item        models.PostInfo
		screenshot  sql.NullString
		downloadURL sql.NullString
		avatarURL   sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Server, &item.Title, &item.Description,
		&screenshot, &downloadURL, &item.ViewCount, &item.CreatedAt,
		&item.AuthorUID, &item.AuthorUsername, &avatarURL, &item.LikeCount); err != nil {
		return nil, err
	}
	item.ScreenshotPath = screenshot.String
	item.DownloadURL = downloadURL.String
	item.AuthorAvatarURL = avatarURL.String
	return &item, nil
}

// CreatePost сохраняет новый пост и возвращает его ID.
func (s *Storage) CreatePost(ctx context.Context, post models.Post) (int64, error) {
	const op = "storage.CreatePost"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO posts (user_id, server, title, description, screenshot_path,
			      download_url, view_count, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	newID, err := s.DB.ExecInsert(ctx, query,
		post.UserID, post.Server, post.Title, post.Description,
		post.ScreenshotPath, post.DownloadURL, post.ViewCount, post.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPosts возвращает посты с авторами и лайками, новые первыми.
func (s *Storage) ListPosts(ctx context.Context, limit int) ([]*models.PostInfo, error) {
	const op = "storage.ListPosts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + postInfoColumns + `
			  FROM posts p
			  JOIN users u ON u.id = p.user_id
			  ORDER BY p.created_at DESC
			  LIMIT ?`
	rows, err := s.DB.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PostInfo
	for rows.Next() {
		item, err := scanPostInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadPost увеличивает счётчик просмотров и возвращает пост.
func (s *Storage) ReadPost(ctx context.Context, id int64) (*models.PostInfo, error) {
	const op = "storage.ReadPost"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.Exec(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + postInfoColumns + `
			  FROM posts p
			  JOIN users u ON u.id = p.user_id
			  WHERE p.id = ?`
	item, err := scanPostInfo(s.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeerr.Classify(err))
	}
	return item, nil
}

// ToggleLike ставит или снимает лайк пользователя и возвращает
// итоговое количество лайков поста.
func (s *Storage) ToggleLike(ctx context.Context, userID, postID int64, at int64) (int64, error) {
	const op = "storage.ToggleLike"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists int
	err := s.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM post_likes WHERE user_id = ? AND post_id = ?`, userID, postID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if exists > 0 {
		_, err = s.DB.Exec(ctx,
			`DELETE FROM post_likes WHERE user_id = ? AND post_id = ?`, userID, postID)
	} else {
		_, err = s.DB.Exec(ctx,
			`INSERT INTO post_likes (user_id, post_id, created_at) VALUES (?, ?, ?)`, userID, postID, at)
		// Гонка двух одновременных лайков решается ограничением
		// уникальности первичного ключа пары.
		if storeerr.IsUniqueViolation(err) {
			err = nil
		}
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int64
	if err := s.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM post_likes WHERE post_id = ?`, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// DeletePost удаляет пост; лайки удаляются каскадом.
func (s *Storage) DeletePost(ctx context.Context, id int64) (int, error) {
	const op = "storage.DeletePost"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.Exec(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
