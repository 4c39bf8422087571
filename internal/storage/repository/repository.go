// Package repository реализует хранилище данных поверх пары
// PostgreSQL + MySQL для пользователей, лицензионных ключей и постов.
// Все запросы пишутся с плейсхолдерами '?' и маршрутизируются через
// dual.Store; гарантии согласованности даёт только основное хранилище.
package repository

import (
	"context"
	"fmt"

	"github.com/nelondlc/license-hub/internal/storage/dual"
)

// Storage инкапсулирует маршрутизатор пары хранилищ и реализует
// методы работы с пользователями, ключами и постами.
type Storage struct {
	DB *dual.Store
}

// New создаёт репозиторий поверх уже открытого маршрутизатора.
func New(store *dual.Store) *Storage {
	return &Storage{DB: store}
}

// CheckDatabaseReady проверяет готовность основного хранилища.
func CheckDatabaseReady(ctx context.Context, storage *Storage) error {
	var n int
	err := storage.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE 1 = 0`).Scan(&n)
	if err != nil {
		return fmt.Errorf("required table users missing or query error: %w", err)
	}
	return nil
}
