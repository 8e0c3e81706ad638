// Package localstate persists the small amount of client-side durable
// state: the token pair, the session identifier, and the purchase-completed
// flag. It is a single-file key-value table, cleared wholesale on logout.
package localstate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	keyAccessToken       = "access_token"
	keyRefreshToken      = "refresh_token"
	keySessionID         = "session_id"
	keyPurchaseCompleted = "purchase_completed"
)

// Store is the sqlite-backed local state store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the local state database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// AccessToken returns the stored access token, empty when logged out.
func (s *Store) AccessToken() (string, error) {
	return s.get(keyAccessToken)
}

// RefreshToken returns the stored refresh token, empty when logged out.
func (s *Store) RefreshToken() (string, error) {
	return s.get(keyRefreshToken)
}

// SessionID returns the session identifier, generating and persisting one
// on first use. The same identifier is reused across requests and runs
// until Clear.
func (s *Store) SessionID() (string, error) {
	id, err := s.get(keySessionID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.set(keySessionID, id); err != nil {
		return "", err
	}
	return id, nil
}

// SetAccessToken stores a rotated access token.
func (s *Store) SetAccessToken(token string) error {
	return s.set(keyAccessToken, token)
}

// SetTokens stores a fresh token pair after login.
func (s *Store) SetTokens(access, refresh string) error {
	if err := s.set(keyAccessToken, access); err != nil {
		return err
	}
	return s.set(keyRefreshToken, refresh)
}

// SetPurchaseCompleted records whether the current batch finished purchase.
func (s *Store) SetPurchaseCompleted(done bool) error {
	value := "0"
	if done {
		value = "1"
	}
	return s.set(keyPurchaseCompleted, value)
}

// PurchaseCompleted reports whether the current batch finished purchase.
func (s *Store) PurchaseCompleted() (bool, error) {
	value, err := s.get(keyPurchaseCompleted)
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// Clear wipes everything, including the session identifier. Called on
// logout and on session teardown after a failed token refresh.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("clearing state: %w", err)
	}
	return nil
}
