// Package reconcile реализует оффлайн-задачу сверки пары хранилищ.
//
// Зеркальные записи маршрутизатора выполняются best-effort и могут
// теряться; задача устраняет накопившийся дрейф, построчно перенося
// четыре сущности из исходного хранилища в целевое с перезаписью по
// первичному ключу, а затем выравнивает счётчики автоинкремента,
// чтобы новые локальные id целевого хранилища не пересекались с
// перенесёнными.
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/storage/dual"
)

// Conn одно хранилище сверки: пул, диалект и человекочитаемая метка.
type Conn struct {
	DB     *sql.DB
	Driver dual.Driver
	Label  string
}

// TableSummary итог сверки одной таблицы.
type TableSummary struct {
	Table   string `json:"table"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
}

// Summary итог одного прогона сверки.
type Summary struct {
	RunID  string         `json:"runId"`
	Source string         `json:"source"`
	Dest   string         `json:"dest"`
	Tables []TableSummary `json:"tables"`
}

// Job задача сверки источник → приёмник.
type Job struct {
	log *slog.Logger
	src Conn
	dst Conn
}

// New создаёт задачу сверки.
func New(log *slog.Logger, src, dst Conn) *Job {
	return &Job{log: log, src: src, dst: dst}
}

// Run переносит все строки четырёх сущностей из источника в приёмник
// строго в порядке зависимостей: пользователи, посты, лайки, ключи.
// Сбой на отдельной строке логируется и пропускается — задача
// частично-успешная по построению. После переноса каждой таблицы с
// автоинкрементом её счётчик в приёмнике выравнивается по max(id)
// источника.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	const op = "reconcile.Run"

	summary := &Summary{
		RunID:  uuid.NewString(),
		Source: j.src.Label,
		Dest:   j.dst.Label,
	}
	log := j.log.With(
		slog.String("op", op),
		slog.String("run_id", summary.RunID),
		slog.String("source", j.src.Label),
		slog.String("dest", j.dst.Label),
	)
	log.Info("reconciliation started")

	steps := []func(context.Context, *slog.Logger) (TableSummary, error){
		j.syncUsers,
		j.syncPosts,
		j.syncLikes,
		j.syncKeys,
	}
	for _, step := range steps {
		ts, err := step(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		summary.Tables = append(summary.Tables, ts)
		log.Info("table reconciled",
			slog.String("table", ts.Table),
			slog.Int("synced", ts.Synced),
			slog.Int("skipped", ts.Skipped))
	}

	log.Info("reconciliation finished")
	return summary, nil
}

// upsertQuery строит диалектный upsert: вставка с перезаписью всех
// изменяемых колонок при конфликте по первичному ключу.
func upsertQuery(d dual.Driver, table string, columns []string, conflictKey []string, updatable []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders)

	var sets []string
	if d == dual.DriverPostgres {
		for _, c := range updatable {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
		return dual.Rewrite(d, fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
			insert, strings.Join(conflictKey, ", "), strings.Join(sets, ", ")))
	}
	for _, c := range updatable {
		sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
	}
	return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s", insert, strings.Join(sets, ", "))
}

// realignSequence выравнивает счётчик автоинкремента таблицы приёмника
// по максимальному id, наблюдавшемуся в источнике.
func (j *Job) realignSequence(ctx context.Context, table string, maxID int64) error {
	const op = "reconcile.realignSequence"
	if maxID <= 0 {
		return nil
	}
	var err error
	switch j.dst.Driver {
	case dual.DriverPostgres:
		_, err = j.dst.DB.ExecContext(ctx,
			fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), $1)`, table), maxID)
	default:
		// ALTER TABLE не принимает параметры; maxID — целое из самого хранилища.
		_, err = j.dst.DB.ExecContext(ctx,
			fmt.Sprintf(`ALTER TABLE %s AUTO_INCREMENT = %d`, table, maxID+1))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (j *Job) syncUsers(ctx context.Context, log *slog.Logger) (TableSummary, error) {
	const op = "reconcile.syncUsers"
	ts := TableSummary{Table: "users"}

	rows, err := j.src.DB.QueryContext(ctx,
		`SELECT id, uid, username, email, password_hash, avatar_url, is_admin,
		        license_key, created_at, last_login, subscription_tier,
		        subscription_expires_at, hwid
		 FROM users ORDER BY id ASC`)
	if err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns := []string{"id", "uid", "username", "email", "password_hash", "avatar_url",
		"is_admin", "license_key", "created_at", "last_login", "subscription_tier",
		"subscription_expires_at", "hwid"}
	updatable := []string{"uid", "username", "email", "password_hash", "avatar_url",
		"is_admin", "license_key", "last_login", "subscription_tier",
		"subscription_expires_at", "hwid"}
	query := upsertQuery(j.dst.Driver, "users", columns, []string{"id"}, updatable)

	var maxID int64
	for rows.Next() {
		var (
			id, uid, createdAt, expiresAt int64
			username, email, passwordHash string
			subscriptionTier              string
			isAdmin                       bool
			avatarURL, licenseKey, hwid   sql.NullString
			lastLogin                     sql.NullInt64
		)
		if err := rows.Scan(&id, &uid, &username, &email, &passwordHash, &avatarURL,
			&isAdmin, &licenseKey, &createdAt, &lastLogin, &subscriptionTier,
			&expiresAt, &hwid); err != nil {
			return ts, fmt.Errorf("%s: %w", op, err)
		}
		if id > maxID {
			maxID = id
		}
		if _, err := j.dst.DB.ExecContext(ctx, query,
			id, uid, username, email, passwordHash, avatarURL, isAdmin,
			licenseKey, createdAt, lastLogin, subscriptionTier, expiresAt, hwid); err != nil {
			log.Warn("user row skipped", slog.Int64("id", id), sl.Err(err))
			ts.Skipped++
			continue
		}
		ts.Synced++
	}
	if err := rows.Err(); err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	if err := j.realignSequence(ctx, "users", maxID); err != nil {
		return ts, err
	}
	return ts, nil
}

func (j *Job) syncPosts(ctx context.Context, log *slog.Logger) (TableSummary, error) {
	const op = "reconcile.syncPosts"
	ts := TableSummary{Table: "posts"}

	rows, err := j.src.DB.QueryContext(ctx,
		`SELECT id, user_id, server, title, description, screenshot_path,
		        download_url, view_count, created_at
		 FROM posts ORDER BY id ASC`)
	if err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns := []string{"id", "user_id", "server", "title", "description",
		"screenshot_path", "download_url", "view_count", "created_at"}
	updatable := []string{"user_id", "server", "title", "description",
		"screenshot_path", "download_url", "view_count"}
	query := upsertQuery(j.dst.Driver, "posts", columns, []string{"id"}, updatable)

	var maxID int64
	for rows.Next() {
		var (
			id, userID, viewCount, createdAt int64
			server, title, description       string
			screenshot, downloadURL          sql.NullString
		)
		if err := rows.Scan(&id, &userID, &server, &title, &description,
			&screenshot, &downloadURL, &viewCount, &createdAt); err != nil {
			return ts, fmt.Errorf("%s: %w", op, err)
		}
		if id > maxID {
			maxID = id
		}
		if _, err := j.dst.DB.ExecContext(ctx, query,
			id, userID, server, title, description, screenshot, downloadURL,
			viewCount, createdAt); err != nil {
			log.Warn("post row skipped", slog.Int64("id", id), sl.Err(err))
			ts.Skipped++
			continue
		}
		ts.Synced++
	}
	if err := rows.Err(); err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	if err := j.realignSequence(ctx, "posts", maxID); err != nil {
		return ts, err
	}
	return ts, nil
}

func (j *Job) syncLikes(ctx context.Context, log *slog.Logger) (TableSummary, error) {
	const op = "reconcile.syncLikes"
	ts := TableSummary{Table: "post_likes"}

	rows, err := j.src.DB.QueryContext(ctx,
		`SELECT user_id, post_id, created_at FROM post_likes ORDER BY user_id ASC, post_id ASC`)
	if err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns := []string{"user_id", "post_id", "created_at"}
	query := upsertQuery(j.dst.Driver, "post_likes", columns,
		[]string{"user_id", "post_id"}, []string{"created_at"})

	for rows.Next() {
		var userID, postID, createdAt int64
		if err := rows.Scan(&userID, &postID, &createdAt); err != nil {
			return ts, fmt.Errorf("%s: %w", op, err)
		}
		if _, err := j.dst.DB.ExecContext(ctx, query, userID, postID, createdAt); err != nil {
			log.Warn("like row skipped",
				slog.Int64("user_id", userID), slog.Int64("post_id", postID), sl.Err(err))
			ts.Skipped++
			continue
		}
		ts.Synced++
	}
	if err := rows.Err(); err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	return ts, nil
}

func (j *Job) syncKeys(ctx context.Context, log *slog.Logger) (TableSummary, error) {
	const op = "reconcile.syncKeys"
	ts := TableSummary{Table: "license_keys"}

	rows, err := j.src.DB.QueryContext(ctx,
		`SELECT id, key_code, subscription_type, used, created_at, created_by, used_at, used_by
		 FROM license_keys ORDER BY id ASC`)
	if err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns := []string{"id", "key_code", "subscription_type", "used",
		"created_at", "created_by", "used_at", "used_by"}
	updatable := []string{"subscription_type", "used", "used_at", "used_by"}
	query := upsertQuery(j.dst.Driver, "license_keys", columns, []string{"id"}, updatable)

	var maxID int64
	for rows.Next() {
		var (
			id, createdAt     int64
			keyCode, subType  string
			used              bool
			createdBy, usedBy sql.NullInt64
			usedAt            sql.NullInt64
		)
		if err := rows.Scan(&id, &keyCode, &subType, &used, &createdAt,
			&createdBy, &usedAt, &usedBy); err != nil {
			return ts, fmt.Errorf("%s: %w", op, err)
		}
		if id > maxID {
			maxID = id
		}
		if _, err := j.dst.DB.ExecContext(ctx, query,
			id, keyCode, subType, used, createdAt, createdBy, usedAt, usedBy); err != nil {
			log.Warn("key row skipped", slog.Int64("id", id), sl.Err(err))
			ts.Skipped++
			continue
		}
		ts.Synced++
	}
	if err := rows.Err(); err != nil {
		return ts, fmt.Errorf("%s: %w", op, err)
	}
	if err := j.realignSequence(ctx, "license_keys", maxID); err != nil {
		return ts, err
	}
	return ts, nil
}
