package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nelondlc/license-hub/internal/lib/tier"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// userColumns единый список колонок пользователя для SELECT.
const userColumns = `id, uid, username, email, password_hash, avatar_url, is_admin,
			      license_key, created_at, last_login, subscription_tier,
			      subscription_expires_at, hwid`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u          models.User
		avatarURL  sql.NullString
		licenseKey sql.NullString
		lastLogin  sql.NullInt64
		hwid       sql.NullString
		tierRaw    string
	)
	if err := row.Scan(&u.ID, &u.UID, &u.Username, &u.Email, &u.PasswordHash,
		&avatarURL, &u.IsAdmin, &licenseKey, &u.CreatedAt, &lastLogin,
		&tierRaw, &u.SubscriptionExpires, &hwid); err != nil {
		return nil, err
	}
	u.AvatarURL = avatarURL.String
	u.LicenseKey = licenseKey.String
	u.LastLogin = lastLogin.Int64
	u.HWID = hwid.String
	u.SubscriptionTier = tier.Tier(tierRaw)
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = tier.None
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его внутренний ID.
// Конфликт уникальности (username, email или uid) возвращается как
// storeerr.ErrAlreadyExists — вызывающий отличает его от прочих сбоев.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if user.SubscriptionTier == "" {
		user.SubscriptionTier = tier.None
	}
	query := `INSERT INTO users (uid, username, email, password_hash, is_admin,
			      created_at, last_login, subscription_tier, subscription_expires_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	newID, err := s.DB.ExecInsert(ctx, query,
		user.UID, user.Username, user.Email, user.PasswordHash, user.IsAdmin,
		user.CreatedAt, user.LastLogin, string(user.SubscriptionTier), user.SubscriptionExpires)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, storeerr.Classify(err))
	}
	return newID, nil
}

// GetUserByID возвращает пользователя по внутреннему ID.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(s.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeerr.Classify(err))
	}
	return u, nil
}

// GetUserByUID возвращает пользователя по внешнему UID.
func (s *Storage) GetUserByUID(ctx context.Context, uid int64) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = ?`
	u, err := scanUser(s.DB.QueryRow(ctx, query, uid))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeerr.Classify(err))
	}
	return u, nil
}

// GetUserByLogin возвращает пользователя по имени или email.
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	const op = "storage.GetUserByLogin"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ?`
	u, err := scanUser(s.DB.QueryRow(ctx, query, login, login))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeerr.Classify(err))
	}
	return u, nil
}

// NextUID вычисляет следующий внешний UID как max(uid)+1 по основному
// хранилищу. Чистое чтение без блокировок: параллельные регистрации могут
// получить одинаковое значение, финальным арбитром служит ограничение
// уникальности на uid (вызывающий повторяет попытку).
func (s *Storage) NextUID(ctx context.Context) (int64, error) {
	const op = "storage.NextUID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var maxUID sql.NullInt64
	if err := s.DB.QueryRow(ctx, `SELECT MAX(uid) FROM users`).Scan(&maxUID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return maxUID.Int64 + 1, nil
}

// FirstFreeUID возвращает наименьший свободный UID начиная с 1,
// заполняя дыры после удалённых пользователей. Используется только
// при создании стартового администратора; обычная регистрация UID
// не переиспользует.
func (s *Storage) FirstFreeUID(ctx context.Context) (int64, error) {
	const op = "storage.FirstFreeUID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.Query(ctx, `SELECT uid FROM users ORDER BY uid ASC`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var next int64 = 1
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if uid > next {
			break
		}
		if uid == next {
			next++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}

// UpdateLastLogin отмечает момент последнего входа пользователя.
func (s *Storage) UpdateLastLogin(ctx context.Context, id int64, at int64) error {
	const op = "storage.UpdateLastLogin"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.Exec(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// BindHWID привязывает устройство к пользователю, если привязки ещё нет.
func (s *Storage) BindHWID(ctx context.Context, id int64, hwid string) error {
	const op = "storage.BindHWID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET hwid = ? WHERE id = ? AND (hwid IS NULL OR hwid = '')`
	if _, err := s.DB.Exec(ctx, query, hwid, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetHWID сбрасывает привязку устройства.
func (s *Storage) ResetHWID(ctx context.Context, id int64) error {
	const op = "storage.ResetHWID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.Exec(ctx, `UPDATE users SET hwid = NULL WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateUsername меняет имя пользователя; конфликт уникальности
// возвращается как storeerr.ErrAlreadyExists.
func (s *Storage) UpdateUsername(ctx context.Context, id int64, username string) error {
	const op = "storage.UpdateUsername"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.Exec(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, id); err != nil {
		return fmt.Errorf("%s: %w", op, storeerr.Classify(err))
	}
	return nil
}

// UpdatePasswordHash меняет хэш пароля пользователя.
func (s *Storage) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	const op = "storage.UpdatePasswordHash"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.Exec(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetAdmin выставляет признак администратора.
func (s *Storage) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	const op = "storage.SetAdmin"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.Exec(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetSubscription выставляет уровень и срок подписки пользователя.
func (s *Storage) SetSubscription(ctx context.Context, id int64, t tier.Tier, expiresAt int64) error {
	const op = "storage.SetSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET subscription_tier = ?, subscription_expires_at = ? WHERE id = ?`
	if _, err := s.DB.Exec(ctx, query, string(t), expiresAt, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя; посты и лайки удаляются каскадом
// средствами самого хранилища.
func (s *Storage) DeleteUser(ctx context.Context, id int64) (int, error) {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// HasAdmin сообщает, есть ли в хранилище хотя бы один администратор.
func (s *Storage) HasAdmin(ctx context.Context) (bool, error) {
	const op = "storage.HasAdmin"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var n int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_admin = ?`, true).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// ListUsers возвращает пользователей в порядке убывания даты регистрации.
func (s *Storage) ListUsers(ctx context.Context, limit int) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT ?`
	rows, err := s.DB.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SearchUsers ищет пользователей по подстроке имени/почты или точному UID.
func (s *Storage) SearchUsers(ctx context.Context, q string, uid int64, limit int) ([]*models.User, error) {
	const op = "storage.SearchUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username LIKE ? OR email LIKE ? OR uid = ?
			  ORDER BY created_at DESC
			  LIMIT ?`
	rows, err := s.DB.Query(ctx, query, "%"+q+"%", "%"+q+"%", uid, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
