package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"nfe-gestor/internal/auth"
	"nfe-gestor/internal/config"
)

// Emite um JWT para uso na API (operação/suporte).
func main() {
	subject := flag.String("sub", "", "identificação do usuário (ex: email)")
	roleFlag := flag.String("role", string(auth.RoleViewer), "papel: viewer|accountant|admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "validade do token")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "--sub é obrigatório")
		os.Exit(2)
	}

	role, err := auth.ParseRole(*roleFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro carregando config: %v\n", err)
		os.Exit(1)
	}
	if cfg.API.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "NFE_GESTOR_JWT_SECRET não definido")
		os.Exit(1)
	}

	tok, err := auth.IssueToken([]byte(cfg.API.JWTSecret), *subject, role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
