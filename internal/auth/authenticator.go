package auth

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// DefaultQuery looks a user up by one of their tokens.
const DefaultQuery = `SELECT users.* FROM users ` +
	`INNER JOIN user_tokens ON user_tokens.user_id = users.id ` +
	`WHERE user_tokens.token = :token LIMIT 1`

// Authenticator resolves tokens to user rows.
type Authenticator struct {
	conn store.Connector
	tmpl string
}

// New creates an Authenticator. An empty tmpl selects DefaultQuery.
func New(conn store.Connector, tmpl string) *Authenticator {
	if tmpl == "" {
		tmpl = DefaultQuery
	}
	return &Authenticator{conn: conn, tmpl: tmpl}
}

// Authenticate returns the user owning token.
//
// It fails with ErrNoUser when the token is empty or matches nothing, and
// with a store.ErrQuery wrapped error when the lookup itself fails.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (store.Row, error) {
	return a.AuthenticateParams(ctx, query.Params{"token": token})
}

// AuthenticateParams runs the lookup with an arbitrary credential mapping,
// for templates that match on more than the token. The token key must be
// present and non-empty.
func (a *Authenticator) AuthenticateParams(ctx context.Context, params query.Params) (store.Row, error) {
	if tok, _ := params["token"].(string); tok == "" {
		return nil, ErrNoUser
	}

	rows, err := a.conn.Query(ctx, a.tmpl, params)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoUser
	}
	return rows[0], nil
}
