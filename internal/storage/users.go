package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/solace/internal/profile"
)

// GetUser returns the stored record for username, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, username string) (profile.Record, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT document FROM users WHERE username = ?"), username,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Record{}, ErrNotFound
	}
	if err != nil {
		return profile.Record{}, fmt.Errorf("querying user %q: %w", username, err)
	}
	return decodeRecord(username, doc)
}

// PutUser inserts or replaces the document for username. The original
// created_at is kept on replace.
func (s *Store) PutUser(ctx context.Context, username string, r profile.Record) error {
	r.Username = username
	doc, err := encodeRecord(r)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (username, document, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`),
		username, doc, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", username, err)
	}
	return nil
}

// CreateUser writes the empty skeleton for username unless a row already
// exists. It reports whether a row was inserted.
func (s *Store) CreateUser(ctx context.Context, username string) (bool, error) {
	doc, err := encodeRecord(profile.NewRecord(username))
	if err != nil {
		return false, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (username, document, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING`),
		username, doc, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("creating user %q: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("creating user %q: %w", username, err)
	}
	return n > 0, nil
}

// PatchUser merges p into the stored document inside one transaction.
// It returns ErrNotFound when the user does not exist; nothing is created.
func (s *Store) PatchUser(ctx context.Context, username string, p profile.Patch) error {
	return s.UpdateUser(ctx, username, func(r *profile.Record) error {
		p.Apply(r)
		return nil
	})
}

// UpdateUser loads the document for username, passes it to fn and writes
// the result back in the same transaction. A result that fails
// Record.Validate is not written and the error wraps
// profile.ErrInvalidRecord.
func (s *Store) UpdateUser(ctx context.Context, username string, fn func(*profile.Record) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := "SELECT document FROM users WHERE username = ?"
	if s.dialect == DialectPostgres {
		query += " FOR UPDATE"
	}

	var doc string
	err = tx.QueryRowContext(ctx, s.rebind(query), username).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying user %q: %w", username, err)
	}

	r, err := decodeRecord(username, doc)
	if err != nil {
		return err
	}
	if err := fn(&r); err != nil {
		return err
	}
	r.Username = username
	if err := r.Validate(); err != nil {
		return err
	}

	updated, err := encodeRecord(r)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind("UPDATE users SET document = ?, updated_at = ? WHERE username = ?"),
		updated, time.Now().UTC().Format(time.RFC3339Nano), username,
	); err != nil {
		return fmt.Errorf("updating user %q: %w", username, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user %q: %w", username, err)
	}
	return nil
}

// UserExists probes for username without fetching the document.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT 1 FROM users WHERE username = ?"), username,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probing user %q: %w", username, err)
	}
	return true, nil
}

// ListUsernames returns every stored username in ascending order.
func (s *Store) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT username FROM users ORDER BY username ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func encodeRecord(r profile.Record) (string, error) {
	r.Normalize()
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding user %q: %w", r.Username, err)
	}
	return string(b), nil
}

func decodeRecord(username, doc string) (profile.Record, error) {
	var r profile.Record
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return profile.Record{}, fmt.Errorf("decoding user %q: %w", username, err)
	}
	r.Normalize()
	return r, nil
}
