package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zixifan/bili-helper/crypto"
)

// PostgresStore persists sessions in the sessions table so logins survive
// restarts and can be shared across instances. When ENCRYPTION_KEY is set,
// SESSDATA is encrypted at rest (encryption_version = 1); otherwise it is
// stored in plaintext (version 0).
type PostgresStore struct {
	DB  *sql.DB
	enc crypto.Encryptor
}

// NewPostgresStore creates a Postgres-backed session store, initializing the
// at-rest encryptor from ENCRYPTION_KEY if present.
func NewPostgresStore(dbx *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{DB: dbx}
	key := os.Getenv("ENCRYPTION_KEY")
	if key == "" {
		slog.Warn("ENCRYPTION_KEY not set, session credentials will be stored in plaintext (not recommended for production)", slog.String("component", "session_store"))
		return s, nil
	}
	enc, err := crypto.NewAESEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session encryption: %w", err)
	}
	s.enc = enc
	slog.Info("session credential encryption enabled (AES-256-GCM)", slog.String("component", "session_store"))
	return s, nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (Account, bool, error) {
	var (
		acct       Account
		sessdata   string
		encVersion int
		expires    time.Time
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(display_name,''), COALESCE(mid,''), COALESCE(sessdata,''), COALESCE(face,''), COALESCE(encryption_version,0), expires_at
		 FROM sessions WHERE token = $1`, token).
		Scan(&acct.DisplayName, &acct.MID, &sessdata, &acct.Face, &encVersion, &expires)
	if err == sql.ErrNoRows {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	if time.Now().After(expires) {
		_ = s.Delete(ctx, token)
		return Account{}, false, nil
	}
	if encVersion == 1 {
		if s.enc == nil {
			return Account{}, false, fmt.Errorf("session is encrypted but ENCRYPTION_KEY not configured")
		}
		dec, err := crypto.DecryptString(s.enc, sessdata)
		if err != nil {
			return Account{}, false, fmt.Errorf("decrypt session credential: %w", err)
		}
		sessdata = dec
	}
	acct.SessData = sessdata
	return acct, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, token string, acct Account, ttl time.Duration) error {
	sessdata := acct.SessData
	encVersion := 0
	if s.enc != nil && sessdata != "" {
		enc, err := crypto.EncryptString(s.enc, sessdata)
		if err != nil {
			return fmt.Errorf("encrypt session credential: %w", err)
		}
		sessdata = enc
		encVersion = 1
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sessions (token, display_name, mid, sessdata, face, encryption_version, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		 ON CONFLICT (token) DO UPDATE SET
		   display_name = EXCLUDED.display_name,
		   mid = EXCLUDED.mid,
		   sessdata = EXCLUDED.sessdata,
		   face = EXCLUDED.face,
		   encryption_version = EXCLUDED.encryption_version,
		   expires_at = EXCLUDED.expires_at`,
		token, acct.DisplayName, acct.MID, sessdata, acct.Face, encVersion, time.Now().Add(ttl))
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}
