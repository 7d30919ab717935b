// Package userstore is the access facade for profile records. Callers talk
// to a Facade; the Facade talks to exactly one Backend chosen at
// construction time: the local file store, the SQL store directly, or the
// HTTP API of a server that owns the SQL store.
package userstore

import (
	"context"
	"fmt"

	"github.com/kalambet/solace/internal/profile"
	"github.com/kalambet/solace/internal/storage"
)

// ErrNotFound is returned by backends when the user has no record.
var ErrNotFound = storage.ErrNotFound

// Backend is implemented by every storage variant.
type Backend interface {
	// Get returns ErrNotFound when the user has no record.
	Get(ctx context.Context, username string) (profile.Record, error)
	// Put creates or fully replaces the record.
	Put(ctx context.Context, username string, r profile.Record) error
	// Patch merges p into an existing record and returns ErrNotFound
	// when there is none.
	Patch(ctx context.Context, username string, p profile.Patch) error
	// Update loads the record, runs fn on it and writes the result back.
	// It returns ErrNotFound when there is no record and fn's error when
	// fn fails; in both cases nothing is written.
	Update(ctx context.Context, username string, fn func(*profile.Record) error) error
	Exists(ctx context.Context, username string) (bool, error)
	// Create writes the empty skeleton unless a record already exists.
	Create(ctx context.Context, username string) error
}

// Mode selects the Backend variant.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeDirect Mode = "direct"
	ModeHTTP   Mode = "http"
)

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeLocal, ModeDirect, ModeHTTP:
		return m, nil
	default:
		return "", fmt.Errorf("unknown store mode %q (want local, direct or http)", s)
	}
}
