// Command issue-token mints an access token for the protected history routes
// using the same JWT settings as the API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/pkg/config"
)

type tokenOutput struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "issue-token:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	userID := fs.String("user", "", "User identifier placed in the token subject")
	role := fs.String("role", string(models.RoleAdmin), "Role claim (SUPERADMIN, ADMIN, TEACHER, STUDENT)")
	ttl := fs.Duration("ttl", 0, "Token lifetime; defaults to JWT_EXPIRATION")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}

	auth := service.NewAuthService(nil, nil, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: expiry,
		Issuer:            cfg.JWT.Issuer,
	})

	token, expiresAt, err := auth.IssueToken(service.TokenRequest{
		UserID: strings.TrimSpace(*userID),
		Role:   models.UserRole(strings.ToUpper(strings.TrimSpace(*role))),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenOutput{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}
