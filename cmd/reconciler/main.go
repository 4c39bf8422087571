// Бинарь оффлайн-сверки пары хранилищ: переносит все строки из
// источника в приёмник и выравнивает счётчики автоинкремента.
// Направление задаётся флагом -source (postgres или mysql).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nelondlc/license-hub/internal/config"
	"github.com/nelondlc/license-hub/internal/services/reconcile"
	"github.com/nelondlc/license-hub/internal/storage/dual"
)

func main() {
	source := flag.String("source", config.StorePostgres,
		"хранилище-источник: postgres или mysql")
	flag.Parse()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var srcDriver, dstDriver dual.Driver
	var srcDSN, dstDSN string
	switch *source {
	case config.StorePostgres:
		srcDriver, srcDSN = dual.DriverPostgres, cfg.PostgresDSN
		dstDriver, dstDSN = dual.DriverMySQL, cfg.MySQLDSN
	case config.StoreMySQL:
		srcDriver, srcDSN = dual.DriverMySQL, cfg.MySQLDSN
		dstDriver, dstDSN = dual.DriverPostgres, cfg.PostgresDSN
	default:
		logger.Error("unknown source store", slog.String("source", *source))
		os.Exit(1)
	}
	if srcDSN == "" || dstDSN == "" {
		logger.Error("both stores must be configured for reconciliation")
		os.Exit(1)
	}

	srcDB, err := dual.OpenConn(srcDriver, srcDSN)
	if err != nil {
		logger.Error("failed to open source store", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		_ = srcDB.Close()
	}()

	dstDB, err := dual.OpenConn(dstDriver, dstDSN)
	if err != nil {
		logger.Error("failed to open destination store", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		_ = dstDB.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job := reconcile.New(logger,
		reconcile.Conn{DB: srcDB, Driver: srcDriver, Label: string(srcDriver)},
		reconcile.Conn{DB: dstDB, Driver: dstDriver, Label: string(dstDriver)})

	summary, err := job.Run(ctx)
	if err != nil {
		logger.Error("reconciliation failed", slog.Any("err", err))
		os.Exit(1)
	}

	for _, ts := range summary.Tables {
		logger.Info("summary",
			slog.String("table", ts.Table),
			slog.Int("synced", ts.Synced),
			slog.Int("skipped", ts.Skipped))
	}
}
