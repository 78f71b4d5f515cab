// Command admintoken mints a bearer token for the admin read endpoints.
//
//	admintoken -sub ops@example.com -role analyst
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
	jwtinfra "github.com/go-verify-api/internal/infrastructure/jwt"
	"github.com/joho/godotenv"
)

func main() {
	sub := flag.String("sub", "", "operator identifier stored as the token subject")
	role := flag.String("role", domain.RoleAnalyst, "token role: admin or analyst")
	flag.Parse()

	if *sub == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *role != domain.RoleAdmin && *role != domain.RoleAnalyst {
		log.Fatalf("unknown role %q", *role)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	p, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("load keys: %v", err)
	}
	token, err := p.Sign(*sub, *role)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(token)
}
