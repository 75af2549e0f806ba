package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"nfe-gestor/internal/api"
	"nfe-gestor/internal/config"
	"nfe-gestor/internal/ingest"
	"nfe-gestor/internal/logx"
	"nfe-gestor/internal/metrics"
	"nfe-gestor/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Init("info")
		slog.Error("erro carregando config", "err", err)
		os.Exit(1)
	}
	logx.Init(cfg.LogLevel)
	slog.Info("[nfe-gestor-api] iniciando...", "addr", cfg.API.Addr)

	if cfg.API.JWTSecret == "" {
		slog.Error("NFE_GESTOR_JWT_SECRET não definido")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.AppDSN())
	if err != nil {
		slog.Error("erro abrindo conexão com banco da aplicação", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		slog.Error("erro no ping ao banco da aplicação", "err", err)
		os.Exit(1)
	}

	store := storage.NewInvoiceStore(db)
	svc, cleanup, err := ingest.FromConfig(cfg, store)
	if err != nil {
		slog.Error("erro montando serviço de importação", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	metrics.Init()
	metricsSrv := metrics.StartHTTPServer(cfg.MetricsAddrAPI)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.NewRouter(svc, store, []byte(cfg.API.JWTSecret), cfg.MaxXMLBytes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("erro no servidor HTTP", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("encerrando servidor HTTP")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("erro no shutdown do servidor HTTP", "err", err)
	}
	_ = metricsSrv.Shutdown(shutdownCtx)

	slog.Info("[nfe-gestor-api] finalizado")
}
