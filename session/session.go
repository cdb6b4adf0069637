// Package session provides the login session store: an opaque token mapped to
// the Bilibili account and credential behind it. The store is an explicit
// dependency injected into handlers, with in-memory and Postgres backends.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is the logged-in Bilibili account bound to a session token.
type Account struct {
	DisplayName string `json:"display_name"`
	MID         string `json:"mid"`
	SessData    string `json:"-"`
	Face        string `json:"face"`
}

// Store maps opaque session tokens to accounts.
type Store interface {
	// Get returns the account for token, or found=false if the token is
	// unknown or expired.
	Get(ctx context.Context, token string) (acct Account, found bool, err error)
	// Put binds token to acct for ttl.
	Put(ctx context.Context, token string, acct Account, ttl time.Duration) error
	// Delete forgets token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

// DefaultTTL bounds how long a login session stays valid without re-login.
const DefaultTTL = 24 * time.Hour

// NewToken returns a fresh opaque session token.
func NewToken() string {
	return uuid.NewString()
}
