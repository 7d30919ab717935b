package userstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kalambet/solace/internal/localstore"
	"github.com/kalambet/solace/internal/profile"
)

const (
	userKeyPrefix  = "user_"
	currentUserKey = "currentUser"
)

// Local keeps records in a localstore under user_<username> keys.
type Local struct {
	kv *localstore.Store

	// mu serializes writes through this Local.
	mu sync.Mutex
}

// NewLocal wraps kv.
func NewLocal(kv *localstore.Store) *Local {
	return &Local{kv: kv}
}

func userKey(username string) string {
	return userKeyPrefix + username
}

func (l *Local) Get(_ context.Context, username string) (profile.Record, error) {
	raw, ok := l.kv.Get(userKey(username))
	if !ok {
		return profile.Record{}, ErrNotFound
	}
	var r profile.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return profile.Record{}, fmt.Errorf("decoding local user %q: %w", username, err)
	}
	r.Normalize()
	return r, nil
}

func (l *Local) Put(_ context.Context, username string, r profile.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.put(username, r)
}

func (l *Local) put(username string, r profile.Record) error {
	r.Username = username
	r.Normalize()
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding local user %q: %w", username, err)
	}
	return l.kv.Set(userKey(username), string(b))
}

func (l *Local) Patch(ctx context.Context, username string, p profile.Patch) error {
	return l.Update(ctx, username, func(r *profile.Record) error {
		p.Apply(r)
		return nil
	})
}

// Update runs fn on the stored record and writes the result back while
// holding the write lock. A result that fails Record.Validate is not
// written.
func (l *Local) Update(ctx context.Context, username string, fn func(*profile.Record) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, err := l.Get(ctx, username)
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
	return l.put(username, r)
}

func (l *Local) Exists(_ context.Context, username string) (bool, error) {
	_, ok := l.kv.Get(userKey(username))
	return ok, nil
}

func (l *Local) Create(ctx context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok, _ := l.Exists(ctx, username); ok {
		return nil
	}
	return l.put(username, profile.NewRecord(username))
}

// Usernames lists every locally stored user in ascending order.
func (l *Local) Usernames() []string {
	keys := l.kv.Keys(userKeyPrefix)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, userKeyPrefix))
	}
	return names
}

// ClearUsers removes every local user record. The current-user marker is
// kept. Failures are logged and the sweep continues; a cancelled ctx stops
// it between removals.
func (l *Local) ClearUsers(ctx context.Context, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for _, k := range l.kv.Keys(userKeyPrefix) {
		if err := ctx.Err(); err != nil {
			logger.Warn("clearing local users interrupted", "removed", removed, "error", err)
			break
		}
		if err := l.kv.Remove(k); err != nil {
			logger.Warn("clearing local user failed", "key", k, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// SetCurrentUser stores the session marker.
func (l *Local) SetCurrentUser(username string) error {
	b, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return err
	}
	return l.kv.Set(currentUserKey, string(b))
}

// CurrentUser returns the username in the session marker, if any.
func (l *Local) CurrentUser() (string, bool) {
	raw, ok := l.kv.Get(currentUserKey)
	if !ok {
		return "", false
	}
	var v struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil || v.Username == "" {
		return "", false
	}
	return v.Username, true
}

// ClearCurrentUser removes the session marker.
func (l *Local) ClearCurrentUser() error {
	return l.kv.Remove(currentUserKey)
}
