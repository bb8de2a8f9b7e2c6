package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

const (
	seedTokenBytes = 24
	seedUsername   = "gateway-admin"
)

// SeedToken creates an initial user and token on first boot when the users
// table is empty. The token is logged once and must be rotated by the
// operator. It returns the token, or "" when seeding was skipped.
func SeedToken(ctx context.Context, conn store.Connector, logger *slog.Logger) (string, error) {
	rows, err := conn.Query(ctx, "SELECT COUNT(*) AS n FROM users", nil)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if len(rows) > 0 {
		if n, ok := rows[0]["n"].(int64); ok && n > 0 {
			logger.Info("users exist, skipping token seed")
			return "", nil
		}
	}

	raw := make([]byte, seedTokenBytes)
	if _, err := rand.Read(raw); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed token: %w", err)
	}
	token := hex.EncodeToString(raw)

	params := query.Params{"username": seedUsername, "display_name": "Gateway Administrator", "token": token}
	if _, err := conn.Exec(ctx,
		"INSERT INTO users (username, display_name) VALUES (:username, :display_name)", params,
	); err != nil {
		return "", fmt.Errorf("creating seed user: %w", err)
	}
	if _, err := conn.Exec(ctx,
		"INSERT INTO user_tokens (user_id, token) SELECT id, :token FROM users WHERE username = :username", params,
	); err != nil {
		return "", fmt.Errorf("creating seed token: %w", err)
	}

	logger.Warn("seed user and token created",
		"username", seedUsername,
		"token", token,
		"action_required", "rotate this token",
	)
	return token, nil
}
