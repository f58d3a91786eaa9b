// Command issue-token prints a bearer token for a principal, signed with
// the configured JWT secret. It is meant for operators and local testing.
package main

import (
	"fmt"
	"os"
	"time"

	"collateral-ledger/config"
	"collateral-ledger/internal/adapter/http/dto"
	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/service"

	flag "github.com/spf13/pflag"
)

func main() {
	principal := flag.String("principal", "", "principal to issue the token for")
	configPath := flag.String("config", "", "path to config file")
	expiry := flag.Duration("expiry", 0, "token lifetime (default: jwt.expiry from config)")
	flag.Parse()

	if !dto.ValidPrincipal(*principal) {
		fmt.Fprintln(os.Stderr, "usage: issue-token --principal <id> [--config path] [--expiry 1h]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "jwt.secret must be set (CLL_JWT_SECRET)")
		os.Exit(1)
	}

	lifetime := cfg.JWT.Expiry
	if *expiry > 0 {
		lifetime = *expiry
	}

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, lifetime, cfg.JWT.Issuer)
	token, expiresAt, err := tokenSvc.Generate(domain.Principal(*principal))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
}
