// Command issue-token prints a signed bearer token for a user, using the
// same AUTH_JWT_* settings as the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mamadbah2/farmcoop/internal/auth"
	"github.com/mamadbah2/farmcoop/internal/config"
)

func main() {
	userID := flag.String("user", "", "user id to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, expiresAt, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, *ttl).GenerateToken(*userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
}
