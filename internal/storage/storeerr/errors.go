// Package storeerr определяет прикладные ошибки слоя хранилища и
// маппинг нативных ошибок драйверов на них. Конфликты уникальности
// должны отличаться вызывающим от "не найдено".
package storeerr

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound запись не существует.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists нарушение уникальности (username, email, uid, key).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidKey лицензионный ключ не существует или уже использован.
	// Терминальная ошибка, повтор без нового ключа бессмыслен.
	ErrInvalidKey = errors.New("invalid or used license key")
)

// Коды нарушения уникальности у драйверов.
const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// Classify переводит нативную ошибку драйвера в прикладную,
// сохраняя оригинал в цепочке через errors.Join. Неизвестные
// ошибки возвращаются как есть.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Join(ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Join(ErrAlreadyExists, err)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return errors.Join(ErrAlreadyExists, err)
	}
	return err
}

// IsUniqueViolation сообщает, является ли ошибка конфликтом уникальности.
func IsUniqueViolation(err error) bool {
	return errors.Is(Classify(err), ErrAlreadyExists)
}
