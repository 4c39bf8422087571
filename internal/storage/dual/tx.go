package dual

import (
	"context"
	"database/sql"
)

// statement отложенная мутация для зеркального воспроизведения после коммита.
type statement struct {
	query string
	args  []any
}

// Tx транзакция на основном хранилище, запоминающая свои мутации.
// После успешного коммита они переигрываются на второе хранилище
// best-effort, в порядке выполнения. Откат транзакции отбрасывает
// накопленные мутации — на зеркало ничего не уходит.
type Tx struct {
	store    *Store
	tx       *sql.Tx
	deferred []statement
}

// Exec выполняет мутацию внутри транзакции и запоминает её для зеркала.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, Rewrite(t.store.primary.driver, query), args...)
	if err != nil {
		return nil, err
	}
	t.deferred = append(t.deferred, statement{query: query, args: args})
	return res, nil
}

// QueryRow выполняет чтение одной строки внутри транзакции.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, Rewrite(t.store.primary.driver, query), args...)
}

// Commit фиксирует транзакцию на основном хранилище и затем переигрывает
// мутации на зеркало. Ошибка зеркала не влияет на результат коммита.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return err
	}
	for _, st := range t.deferred {
		t.store.mirrorExec(ctx, st.query, st.args...)
	}
	return nil
}

// Rollback откатывает транзакцию; зеркало не затрагивается.
func (t *Tx) Rollback() error {
	t.deferred = nil
	return t.tx.Rollback()
}
