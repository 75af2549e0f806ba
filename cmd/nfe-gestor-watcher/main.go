package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"nfe-gestor/internal/config"
	"nfe-gestor/internal/logx"
	"nfe-gestor/internal/metrics"
	"nfe-gestor/internal/queue"
	"nfe-gestor/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Init("info")
		slog.Error("erro carregando config", "err", err)
		os.Exit(1)
	}
	logx.Init(cfg.LogLevel)
	slog.Info("[nfe-gestor-watcher] iniciando...")

	metrics.Init()
	metrics.StartHTTPServer(cfg.MetricsAddrWatcher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pub watcher.Publisher
	if cfg.Queue.Enabled() {
		rmq, err := queue.NewRabbitMQ(cfg.Queue)
		if err != nil {
			slog.Error("erro conectando no RabbitMQ", "err", err)
			os.Exit(1)
		}
		defer rmq.Close()
		pub = rmq
	}

	w, err := watcher.New(cfg, pub)
	if err != nil {
		slog.Error("erro criando watcher", "err", err)
		os.Exit(1)
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watcher finalizou com erro", "err", err)
		os.Exit(1)
	}

	slog.Info("[nfe-gestor-watcher] finalizado")
}
