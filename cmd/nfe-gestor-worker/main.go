package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"nfe-gestor/internal/config"
	"nfe-gestor/internal/ingest"
	"nfe-gestor/internal/logx"
	"nfe-gestor/internal/metrics"
	"nfe-gestor/internal/queue"
	"nfe-gestor/internal/storage"
	"nfe-gestor/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Init("info")
		slog.Error("erro carregando config", "err", err)
		os.Exit(1)
	}
	logx.Init(cfg.LogLevel)
	slog.Info("[nfe-gestor-worker] iniciando...")

	db, err := sql.Open("pgx", cfg.AppDSN())
	if err != nil {
		slog.Error("erro abrindo conexão com banco da aplicação", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.WorkerPoolSize)

	if err := db.Ping(); err != nil {
		slog.Error("erro no ping ao banco da aplicação", "err", err)
		os.Exit(1)
	}
	slog.Info("conectado ao banco da aplicação com sucesso")

	svc, cleanup, err := ingest.FromConfig(cfg, storage.NewInvoiceStore(db))
	if err != nil {
		slog.Error("erro montando serviço de importação", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	metrics.Init()
	metrics.StartHTTPServer(cfg.MetricsAddrWorker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var consumer worker.Consumer
	if cfg.Queue.Enabled() {
		rmq, err := queue.NewRabbitMQ(cfg.Queue)
		if err != nil {
			slog.Error("erro criando cliente RabbitMQ no worker; caindo para modo polling", "err", err)
		} else {
			defer rmq.Close()
			consumer = rmq
		}
	}

	w := worker.New(cfg, svc, consumer)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker finalizou com erro", "err", err)
		os.Exit(1)
	}

	slog.Info("[nfe-gestor-worker] finalizado")
}
