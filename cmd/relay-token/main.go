// Command relay-token issues bearer tokens for intake clients when the relay
// runs with RELAY_JWT_SECRET set.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spec-kit/desk-relay/internal/auth"
	"github.com/spec-kit/desk-relay/internal/config"
)

func main() {
	client := flag.String("client", "", "name of the intake client the token is issued to")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, *ttl)
	if !tokens.Enabled() {
		log.Fatal("RELAY_JWT_SECRET is not set")
	}

	token, expiresAt, err := tokens.Issue(*client, time.Now())
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "client=%s expires=%s\n", *client, expiresAt.Format(time.RFC3339))
}
