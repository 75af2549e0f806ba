package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"nfe-gestor/internal/config"
	"nfe-gestor/internal/logx"
	"nfe-gestor/internal/migrations"
)

func main() {
	// --auto  => não interativo (deploy); cria o DB se faltar, nunca dropa
	// --force => manual; dropa e recria um DB existente, com confirmação
	// --print => só imprime o SQL das migrations
	auto := flag.Bool("auto", false, "modo automático (não interativo); cria DB se não existir, roda migrations, NUNCA dropa DB existente")
	force := flag.Bool("force", false, "força drop e recriação do banco se ele já existir (modo manual)")
	printOnly := flag.Bool("print", false, "imprime o SQL das migrations e sai")
	flag.Parse()

	if *printOnly {
		for i, stmt := range migrations.Statements {
			fmt.Printf("-- migration %d\n%s\n", i+1, strings.TrimSpace(stmt))
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro carregando configuração: %v\n", err)
		os.Exit(1)
	}
	logx.Init(cfg.LogLevel)
	slog.Info("[nfe-gestor-migrator] iniciando...", "auto", *auto, "force", *force)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, *auto, *force); err != nil {
		slog.Error("migrator finalizou com erro", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, auto, force bool) error {
	adminDB, err := sql.Open("pgx", cfg.AdminDSN())
	if err != nil {
		return fmt.Errorf("erro conectando ao Postgres (admin): %w", err)
	}
	defer adminDB.Close()

	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("erro no ping ao Postgres (admin): %w", err)
	}
	slog.Info("conectado ao Postgres admin", "host", cfg.DBHost, "port", cfg.DBPort)

	exists, err := databaseExists(ctx, adminDB, cfg.DBName)
	if err != nil {
		return fmt.Errorf("erro verificando existência do banco %q: %w", cfg.DBName, err)
	}

	switch {
	case exists && force && !auto:
		slog.Warn("banco já existe e --force foi usado: TODOS OS DADOS serão apagados", "db", cfg.DBName)
		if !askYesNo(fmt.Sprintf("Tem certeza que deseja DROPAR e RECRIAR o banco %q? [s/N] ", cfg.DBName)) {
			slog.Info("operação cancelada pelo usuário; nada foi alterado")
			return nil
		}
		if err := dropDatabase(ctx, adminDB, cfg.DBName); err != nil {
			return err
		}
		slog.Info("banco dropado", "db", cfg.DBName)
		if err := createDatabase(ctx, adminDB, cfg.DBName); err != nil {
			return fmt.Errorf("erro recriando banco %q: %w", cfg.DBName, err)
		}
		slog.Info("banco recriado", "db", cfg.DBName)

	case exists:
		// --auto nunca dropa, mesmo com --force
		slog.Info("banco já existe; apenas migrations serão aplicadas", "db", cfg.DBName)

	case auto:
		slog.Info("banco não existe; modo --auto, criando", "db", cfg.DBName)
		if err := createDatabase(ctx, adminDB, cfg.DBName); err != nil {
			return fmt.Errorf("erro criando banco %q: %w", cfg.DBName, err)
		}

	default:
		if !askYesNo(fmt.Sprintf("Banco %q não existe. Deseja criá-lo agora? [s/N] ", cfg.DBName)) {
			slog.Info("operação cancelada pelo usuário; nada foi alterado")
			return nil
		}
		if err := createDatabase(ctx, adminDB, cfg.DBName); err != nil {
			return fmt.Errorf("erro criando banco %q: %w", cfg.DBName, err)
		}
		slog.Info("banco criado", "db", cfg.DBName)
	}

	return runAppMigrations(ctx, cfg)
}

// runAppMigrations conecta no banco da aplicação e roda migrations.Run.
func runAppMigrations(ctx context.Context, cfg *config.Config) error {
	appDB, err := sql.Open("pgx", cfg.AppDSN())
	if err != nil {
		return fmt.Errorf("erro conectando ao banco da aplicação: %w", err)
	}
	defer appDB.Close()

	if err := appDB.PingContext(ctx); err != nil {
		return fmt.Errorf("erro no ping ao banco da aplicação: %w", err)
	}

	slog.Info("aplicando migrations", "total", len(migrations.Statements))
	if err := migrations.Run(ctx, appDB); err != nil {
		return err
	}

	slog.Info("migrations aplicadas com sucesso; banco pronto para uso")
	return nil
}

func databaseExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	const q = `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRowContext(ctx, q, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func createDatabase(ctx context.Context, db *sql.DB, name string) error {
	// template0 pra não herdar nada do template1
	stmt := fmt.Sprintf(`CREATE DATABASE %s WITH TEMPLATE=template0 ENCODING 'UTF8';`, pgx.Identifier{name}.Sanitize())
	_, err := db.ExecContext(ctx, stmt)
	return err
}

func dropDatabase(ctx context.Context, db *sql.DB, name string) error {
	const kill = `
SELECT pg_terminate_backend(pid)
FROM pg_stat_activity
WHERE datname = $1
  AND pid <> pg_backend_pid();
`
	if _, err := db.ExecContext(ctx, kill, name); err != nil {
		return fmt.Errorf("erro terminando conexões do banco %q: %w", name, err)
	}

	// identificador não aceita placeholder
	stmt := fmt.Sprintf(`DROP DATABASE %s;`, pgx.Identifier{name}.Sanitize())
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("erro executando DROP DATABASE %q: %w", name, err)
	}
	return nil
}

func askYesNo(prompt string) bool {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "s" || line == "sim" || line == "y" || line == "yes"
}
