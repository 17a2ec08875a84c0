// Package tokens keeps Google Fit OAuth tokens in a local SQLite database,
// one row per login.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a login has no token row.
var ErrNotFound = errors.New("token not found")

// Record is one login's stored credentials and sync bookkeeping.
type Record struct {
	Login        string    `json:"login"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	Connected    bool      `json:"connected"`
	LastSync     time.Time `json:"last_sync,omitzero"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OAuth returns the record as an oauth2 token.
func (r Record) OAuth() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Expiry:       r.Expiry,
	}
}

// Store is the SQLite-backed token store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the token database at dir/tokens.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating token dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "tokens.db"))
	if err != nil {
		return nil, fmt.Errorf("opening token db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS google_fit_tokens (
		login         TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_type    TEXT NOT NULL DEFAULT '',
		expiry        INTEGER NOT NULL DEFAULT 0,
		connected     INTEGER NOT NULL DEFAULT 1,
		last_sync     INTEGER NOT NULL DEFAULT 0,
		updated_at    INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores tok for login and marks it connected. An empty refresh token
// keeps the previously stored one.
func (s *Store) Save(ctx context.Context, login string, tok *oauth2.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO google_fit_tokens (login, access_token, refresh_token, token_type, expiry, connected, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (login) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN google_fit_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type    = excluded.token_type,
			expiry        = excluded.expiry,
			connected     = 1,
			updated_at    = excluded.updated_at`,
		login, tok.AccessToken, tok.RefreshToken, tok.TokenType, unix(tok.Expiry), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving token for %s: %w", login, err)
	}
	return nil
}

// Load returns login's record, or ErrNotFound.
func (s *Store) Load(ctx context.Context, login string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT login, access_token, refresh_token, token_type, expiry, connected, last_sync, updated_at
		FROM google_fit_tokens WHERE login = ?`, login)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading token for %s: %w", login, err)
	}
	return r, nil
}

// Delete disconnects login. Credentials are wiped; sync history is kept.
func (s *Store) Delete(ctx context.Context, login string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE google_fit_tokens
		SET access_token = '', refresh_token = '', expiry = 0, connected = 0, updated_at = ?
		WHERE login = ?`, s.now().Unix(), login)
	if err != nil {
		return fmt.Errorf("deleting token for %s: %w", login, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSynced records a successful sync for login at t.
func (s *Store) MarkSynced(ctx context.Context, login string, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE google_fit_tokens SET last_sync = ? WHERE login = ?`, t.Unix(), login)
	if err != nil {
		return fmt.Errorf("marking %s synced: %w", login, err)
	}
	return nil
}

// List returns every connected login's record, ordered by login.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT login, access_token, refresh_token, token_type, expiry, connected, last_sync, updated_at
		FROM google_fit_tokens WHERE connected = 1 ORDER BY login`)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Token implements googlefit.TokenStore. It returns nil for unknown or
// disconnected logins.
func (s *Store) Token(ctx context.Context, login string) (*oauth2.Token, error) {
	r, err := s.Load(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !r.Connected {
		return nil, nil
	}
	return r.OAuth(), nil
}

// SaveToken implements googlefit.TokenStore.
func (s *Store) SaveToken(ctx context.Context, login string, tok *oauth2.Token) error {
	return s.Save(ctx, login, tok)
}

// DeleteToken implements googlefit.TokenStore. Unknown logins are not an
// error.
func (s *Store) DeleteToken(ctx context.Context, login string) error {
	if err := s.Delete(ctx, login); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r                         Record
		expiry, lastSync, updated int64
		connected                 int
	)
	if err := sc.Scan(&r.Login, &r.AccessToken, &r.RefreshToken, &r.TokenType,
		&expiry, &connected, &lastSync, &updated); err != nil {
		return Record{}, err
	}
	r.Expiry = fromUnix(expiry)
	r.LastSync = fromUnix(lastSync)
	r.UpdatedAt = fromUnix(updated)
	r.Connected = connected == 1
	return r, nil
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
