package userstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/solace/internal/localstore"
	"github.com/kalambet/solace/internal/profile"
	"github.com/kalambet/solace/internal/storage"
)

// Facade is the single entry point for reading and writing profiles.
// Backend errors never escape it: they are logged and reported as false
// or absent.
type Facade struct {
	backend Backend
	mode    Mode
	logger  *slog.Logger
}

// New wraps backend. A nil logger uses slog.Default().
func New(backend Backend, mode Mode, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{backend: backend, mode: mode, logger: logger}
}

// Options configures Open.
type Options struct {
	Mode Mode

	// LocalPath is the local store file for ModeLocal. "" keeps it in memory.
	LocalPath string

	// DSN and DSNToken address the SQL store for ModeDirect.
	DSN      string
	DSNToken string
	Retry    RetryPolicy
	Opener   OpenFunc

	// RemoteURL and APIToken address the server for ModeHTTP.
	RemoteURL  string
	APIToken   string
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Open builds the Facade for opts.Mode. The direct variant connects lazily
// on first use.
func Open(opts Options) (*Facade, error) {
	var backend Backend
	switch opts.Mode {
	case ModeLocal:
		kv, err := localstore.Open(opts.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("opening local store: %w", err)
		}
		backend = NewLocal(kv)
	case ModeDirect:
		if opts.DSN == "" {
			return nil, errors.New("direct mode requires a dsn")
		}
		retry := opts.Retry
		if retry.Attempts == 0 {
			retry = DefaultRetry
		}
		dsn := storage.WithAuthToken(opts.DSN, opts.DSNToken)
		backend = NewDirect(NewConnector(dsn, opts.Opener), retry)
	case ModeHTTP:
		if opts.RemoteURL == "" {
			return nil, errors.New("http mode requires a remote url")
		}
		backend = NewHTTP(opts.RemoteURL, opts.APIToken, opts.HTTPClient)
	default:
		return nil, fmt.Errorf("unknown store mode %q", opts.Mode)
	}
	return New(backend, opts.Mode, opts.Logger), nil
}

// Mode reports which variant backs the facade.
func (f *Facade) Mode() Mode {
	return f.mode
}

// Backend returns the underlying variant.
func (f *Facade) Backend() Backend {
	return f.backend
}

// Close releases the backend's resources, if it holds any.
func (f *Facade) Close() error {
	if c, ok := f.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Get returns the record for username. A missing user is reported as
// absent, not as a failure.
func (f *Facade) Get(ctx context.Context, username string) (profile.Record, bool) {
	if !validUsername(username) {
		return profile.Record{}, false
	}
	r, err := f.backend.Get(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			f.logger.Warn("profile get failed", "username", username, "mode", f.mode, "error", err)
		}
		return profile.Record{}, false
	}
	r.Reconcile()
	return r, true
}

// Put creates or fully replaces the record. The stored username is always
// the key.
func (f *Facade) Put(ctx context.Context, username string, r profile.Record) bool {
	if !validUsername(username) {
		return false
	}
	r.Username = username
	r.Normalize()
	if err := r.Validate(); err != nil {
		f.logger.Warn("profile put rejected", "username", username, "error", err)
		return false
	}
	if err := f.backend.Put(ctx, username, r); err != nil {
		f.logger.Warn("profile put failed", "username", username, "mode", f.mode, "error", err)
		return false
	}
	return true
}

// Patch merges the present fields of p into an existing record. It returns
// false when the user does not exist or the merged record is invalid.
func (f *Facade) Patch(ctx context.Context, username string, p profile.Patch) bool {
	if !validUsername(username) {
		return false
	}
	if p.Empty() {
		ok, err := f.backend.Exists(ctx, username)
		if err != nil {
			f.logger.Warn("profile patch failed", "username", username, "mode", f.mode, "error", err)
		}
		return ok
	}
	if err := f.backend.Patch(ctx, username, p); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			f.logger.Debug("profile patch on missing user", "username", username)
		case errors.Is(err, profile.ErrInvalidRecord):
			f.logger.Warn("profile patch rejected", "username", username, "error", err)
		default:
			f.logger.Warn("profile patch failed", "username", username, "mode", f.mode, "error", err)
		}
		return false
	}
	return true
}

// Update applies fn to the current record and writes the result back as
// one backend operation. fn sees the reconciled record. It returns false
// when the user does not exist, fn fails or the result is invalid.
func (f *Facade) Update(ctx context.Context, username string, fn func(*profile.Record) error) bool {
	if !validUsername(username) {
		return false
	}
	err := f.backend.Update(ctx, username, func(r *profile.Record) error {
		r.Reconcile()
		if err := fn(r); err != nil {
			return err
		}
		r.Username = username
		r.Normalize()
		return r.Validate()
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotFound):
		f.logger.Debug("profile update on missing user", "username", username)
	default:
		f.logger.Warn("profile update failed", "username", username, "mode", f.mode, "error", err)
	}
	return false
}

// Exists reports whether username has a record.
func (f *Facade) Exists(ctx context.Context, username string) bool {
	if !validUsername(username) {
		return false
	}
	ok, err := f.backend.Exists(ctx, username)
	if err != nil {
		f.logger.Warn("profile exists failed", "username", username, "mode", f.mode, "error", err)
		return false
	}
	return ok
}

// CreateUser writes the empty skeleton for a new user. An existing record
// is left untouched and still counts as success.
func (f *Facade) CreateUser(ctx context.Context, username string) bool {
	if !validUsername(username) {
		return false
	}
	start := time.Now()
	if err := f.backend.Create(ctx, username); err != nil {
		f.logger.Warn("profile create failed", "username", username, "mode", f.mode, "error", err)
		return false
	}
	f.logger.Debug("profile ensured", "username", username, "took", time.Since(start))
	return true
}

func validUsername(u string) bool {
	return strings.TrimSpace(u) != ""
}
