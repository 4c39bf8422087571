package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// CreateKey сохраняет новый лицензионный ключ и возвращает его ID.
func (s *Storage) CreateKey(ctx context.Context, key models.LicenseKey) (int64, error) {
	const op = "storage.CreateKey"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	// Нулевой CreatedBy означает неизвестного создателя и хранится как NULL,
	// иначе нарушится ссылочная целостность на users.
	var createdBy any
	if key.CreatedBy != 0 {
		createdBy = key.CreatedBy
	}
	query := `INSERT INTO license_keys (key_code, subscription_type, used, created_at, created_by)
			  VALUES (?, ?, ?, ?, ?)`
	newID, err := s.DB.ExecInsert(ctx, query,
		key.Key, string(key.SubscriptionType), false, key.CreatedAt, createdBy)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, storeerr.Classify(err))
	}
	return newID, nil
}

// ActivateKey атомарно потребляет ключ и выдаёт подписку пользователю.
//
// Вся операция — одна транзакция на основном хранилище. Воротами служит
// условный UPDATE, переводящий ключ в использованное состояние только
// если он ещё не использован: количество затронутых строк и есть сигнал
// успеха, отдельного чтения-перед-записью нет, поэтому два конкурентных
// вызова на один ключ не могут пройти оба. Отсутствующий или уже
// использованный ключ — storeerr.ErrInvalidKey без каких-либо мутаций.
//
// Возвращает выданный уровень и момент истечения подписки.
func (s *Storage) ActivateKey(ctx context.Context, keyStr string, userID int64, now time.Time) (tier.Tier, int64, error) {
	const op = "storage.ActivateKey"
	select {
	case <-ctx.Done():
		return "", 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.Exec(ctx,
		`UPDATE license_keys SET used = ?, used_by = ?, used_at = ? WHERE key_code = ? AND used = ?`,
		true, userID, now.UnixMilli(), keyStr, false)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return "", 0, fmt.Errorf("%s: %w", op, storeerr.ErrInvalidKey)
	}

	var typeRaw string
	if err := tx.QueryRow(ctx,
		`SELECT subscription_type FROM license_keys WHERE key_code = ?`, keyStr).Scan(&typeRaw); err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	grant, ok := tier.Normalize(typeRaw)
	if !ok || grant == tier.None {
		grant = tier.Basic
	}
	expiresAt := tier.DefaultExpiry(grant, now)

	if _, err := tx.Exec(ctx,
		`UPDATE users SET license_key = ?, subscription_tier = ?, subscription_expires_at = ? WHERE id = ?`,
		keyStr, string(grant), expiresAt, userID); err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	return grant, expiresAt, nil
}

// ListKeys возвращает ключи с именами создателя и потребителя,
// новые первыми.
func (s *Storage) ListKeys(ctx context.Context, limit int) ([]*models.KeyInfo, error) {
	const op = "storage.ListKeys"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT lk.id, lk.key_code, lk.subscription_type, lk.used,
			      lk.created_at, lk.used_at, u1.username, u2.username
			  FROM license_keys lk
			  LEFT JOIN users u1 ON u1.id = lk.created_by
			  LEFT JOIN users u2 ON u2.id = lk.used_by
			  ORDER BY lk.created_at DESC
			  LIMIT ?`
	rows, err := s.DB.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.KeyInfo
	for rows.Next() {
		var (
			item              models.KeyInfo
			usedAt            sql.NullInt64
			createdBy, usedBy sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Key, &item.SubscriptionType, &item.Used,
			&item.CreatedAt, &usedAt, &createdBy, &usedBy); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item.UsedAt = usedAt.Int64
		item.CreatedBy = createdBy.String
		item.UsedBy = usedBy.String
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteKey удаляет ключ независимо от состояния использования.
func (s *Storage) DeleteKey(ctx context.Context, id int64) (int, error) {
	const op = "storage.DeleteKey"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.Exec(ctx, `DELETE FROM license_keys WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
