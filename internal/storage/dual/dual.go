// Package dual реализует маршрутизатор пары хранилищ PostgreSQL + MySQL.
//
// Все запросы приложения пишутся один раз с плейсхолдерами '?' и уходят
// в основное хранилище; при включённом зеркалировании мутации
// переигрываются на втором хранилище по принципу best-effort: сбой
// зеркала логируется и никогда не виден вызывающему. Гарантии
// "ровно один раз" относятся только к основному хранилищу, второе
// со временем может разойтись — дрейф устраняет оффлайн-сверка.
package dual

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Регистрация драйвера MySQL.
	_ "github.com/go-sql-driver/mysql"

	"github.com/nelondlc/license-hub/internal/config"
	"github.com/nelondlc/license-hub/internal/lib/sl"
)

// conn одно физическое хранилище: пул соединений и его диалект.
type conn struct {
	driver Driver
	db     *sql.DB
}

// Store маршрутизатор пары хранилищ. Конструируется один раз при старте
// процесса и передаётся по ссылке всем компонентам — никаких глобальных
// синглтонов.
type Store struct {
	log       *slog.Logger
	primary   *conn
	secondary *conn // nil, если второе хранилище не сконфигурировано
	mirror    bool
}

// New открывает пулы соединений согласно конфигурации пары хранилищ.
// Отсутствие основного хранилища — фатальная ошибка конфигурации,
// отсутствие второго лишь отключает зеркалирование.
func New(cfg config.StorePair, log *slog.Logger) (*Store, error) {
	const op = "dual.New"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	open := func(driver Driver, dsn string) (*conn, error) {
		db, err := OpenConn(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &conn{driver: driver, db: db}, nil
	}

	var primary, secondary *conn
	var err error

	switch cfg.Primary {
	case config.StorePostgres:
		if primary, err = open(DriverPostgres, cfg.PostgresDSN); err != nil {
			return nil, err
		}
		if cfg.MySQLDSN != "" {
			if secondary, err = open(DriverMySQL, cfg.MySQLDSN); err != nil {
				return nil, err
			}
		}
	case config.StoreMySQL:
		if primary, err = open(DriverMySQL, cfg.MySQLDSN); err != nil {
			return nil, err
		}
		if cfg.PostgresDSN != "" {
			if secondary, err = open(DriverPostgres, cfg.PostgresDSN); err != nil {
				return nil, err
			}
		}
	}

	return &Store{
		log:       log,
		primary:   primary,
		secondary: secondary,
		mirror:    cfg.MirrorEnabled && secondary != nil,
	}, nil
}

// OpenConn открывает и проверяет пул соединений к одному хранилищу.
// Используется и маршрутизатором, и задачей сверки, которой нужны
// оба хранилища напрямую.
func OpenConn(driver Driver, dsn string) (*sql.DB, error) {
	const op = "dual.OpenConn"

	name := "pgx"
	if driver == DriverMySQL {
		name = "mysql"
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

// PrimaryDriver возвращает диалект основного хранилища.
func (s *Store) PrimaryDriver() Driver {
	return s.primary.driver
}

// DBConn пара (диалект, пул) одного физического хранилища.
type DBConn struct {
	Driver Driver
	DB     *sql.DB
}

// Conns возвращает оба хранилища, основное первым. Нужен операциям,
// применяемым к каждому хранилищу отдельно, например миграциям.
func (s *Store) Conns() []DBConn {
	conns := []DBConn{{Driver: s.primary.driver, DB: s.primary.db}}
	if s.secondary != nil {
		conns = append(conns, DBConn{Driver: s.secondary.driver, DB: s.secondary.db})
	}
	return conns
}

// Exec выполняет мутацию на основном хранилище и, при включённом
// зеркалировании, переигрывает её на втором. Зеркальная запись
// выполняется строго после принятия основной; её сбой не фатален
// и вызывающему не возвращается.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.primary.db.ExecContext(ctx, Rewrite(s.primary.driver, query), args...)
	if err != nil {
		return nil, err
	}
	s.mirrorExec(ctx, query, args...)
	return res, nil
}

// ExecInsert выполняет INSERT и возвращает присвоенный хранилищем id.
// Для PostgreSQL к запросу дописывается RETURNING id, для MySQL id
// берётся из LastInsertId. На зеркало в обоих случаях уходит исходный
// INSERT без RETURNING; присвоенные там id могут разойтись — это
// устраняет задача сверки.
func (s *Store) ExecInsert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	switch s.primary.driver {
	case DriverPostgres:
		err := s.primary.db.QueryRowContext(ctx,
			Rewrite(s.primary.driver, query)+" RETURNING id", args...).Scan(&id)
		if err != nil {
			return 0, err
		}
	default:
		res, err := s.primary.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}
	s.mirrorExec(ctx, query, args...)
	return id, nil
}

// Query выполняет чтение на основном хранилище.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.primary.db.QueryContext(ctx, Rewrite(s.primary.driver, query), args...)
}

// QueryRow выполняет чтение одной строки на основном хранилище.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.primary.db.QueryRowContext(ctx, Rewrite(s.primary.driver, query), args...)
}

// Begin открывает транзакцию на основном хранилище. Выполненные в ней
// мутации накапливаются и переигрываются на второе хранилище только
// после успешного коммита.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	const op = "dual.Begin"
	tx, err := s.primary.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Tx{store: s, tx: tx}, nil
}

// Ping проверяет доступность основного хранилища.
func (s *Store) Ping(ctx context.Context) error {
	return s.primary.db.PingContext(ctx)
}

// Close закрывает оба пула соединений.
func (s *Store) Close() error {
	err := s.primary.db.Close()
	if s.secondary != nil {
		if cerr := s.secondary.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// mirrorExec переигрывает мутацию на втором хранилище. Любой сбой
// здесь — предупреждение в лог, не ошибка вызова: расхождение
// устраняется задачей сверки.
func (s *Store) mirrorExec(ctx context.Context, query string, args ...any) {
	if !s.mirror {
		return
	}
	if _, err := s.secondary.db.ExecContext(ctx, Rewrite(s.secondary.driver, query), args...); err != nil {
		s.log.Warn("mirror write failed",
			slog.String("driver", string(s.secondary.driver)),
			sl.Err(err))
	}
}
