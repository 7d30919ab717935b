// Package migration copies locally held profile records into the remote
// store.
package migration

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/solace/internal/profile"
)

// DefaultConcurrency bounds how many records are copied at once.
const DefaultConcurrency = 4

// Source is the local side of a migration.
type Source interface {
	Usernames() []string
	Get(ctx context.Context, username string) (profile.Record, error)
	ClearUsers(ctx context.Context, logger *slog.Logger) int
}

// Target is the remote side of a migration.
type Target interface {
	Exists(ctx context.Context, username string) (bool, error)
	Put(ctx context.Context, username string, r profile.Record) error
}

// Result reports a migration run. Success is true iff Errors is empty.
type Result struct {
	Success      bool     `json:"success"`
	MigratedKeys []string `json:"migratedKeys"`
	Errors       []string `json:"errors"`
}

// Service runs migrations between one Source and one Target.
type Service struct {
	local       Source
	remote      Target
	concurrency int
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of records copied in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Service copying from local to remote.
func New(local Source, remote Target, opts ...Option) *Service {
	s := &Service{
		local:       local,
		remote:      remote,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type outcome int

const (
	skipped outcome = iota
	migrated
	failed
)

// Migrate copies every local record the remote does not have yet. Records
// already present remotely are skipped, so running it twice is harmless.
// A failing record is reported in Errors and does not stop the others.
func (s *Service) Migrate(ctx context.Context) Result {
	names := s.local.Usernames()
	outcomes := make([]outcome, len(names))
	messages := make([]string, len(names))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, name := range names {
		g.Go(func() error {
			outcomes[i], messages[i] = s.migrateOne(ctx, name)
			return nil
		})
	}
	g.Wait()

	res := Result{MigratedKeys: []string{}, Errors: []string{}}
	for i, name := range names {
		switch outcomes[i] {
		case migrated:
			res.MigratedKeys = append(res.MigratedKeys, name)
		case failed:
			res.Errors = append(res.Errors, messages[i])
		}
	}
	res.Success = len(res.Errors) == 0

	s.logger.Info("migration finished",
		"local", len(names),
		"migrated", len(res.MigratedKeys),
		"errors", len(res.Errors),
	)
	return res
}

func (s *Service) migrateOne(ctx context.Context, username string) (outcome, string) {
	if err := ctx.Err(); err != nil {
		return failed, fmt.Sprintf("migrating user %s: %v", username, err)
	}

	r, err := s.local.Get(ctx, username)
	if err != nil {
		s.logger.Warn("reading local user failed", "username", username, "error", err)
		return failed, fmt.Sprintf("reading local user %s: %v", username, err)
	}

	exists, err := s.remote.Exists(ctx, username)
	if err != nil {
		s.logger.Warn("checking remote user failed", "username", username, "error", err)
		return failed, fmt.Sprintf("checking remote user %s: %v", username, err)
	}
	if exists {
		s.logger.Debug("user already in remote store, skipping", "username", username)
		return skipped, ""
	}

	if err := s.remote.Put(ctx, username, r); err != nil {
		s.logger.Warn("copying user failed", "username", username, "error", err)
		return failed, fmt.Sprintf("failed to migrate user %s: %v", username, err)
	}
	s.logger.Info("migrated user", "username", username)
	return migrated, ""
}

// Clear removes every local record and keeps the current-user marker.
// Errors are logged, never returned. Records left when ctx is cancelled
// stay in place.
func (s *Service) Clear(ctx context.Context) {
	n := s.local.ClearUsers(ctx, s.logger)
	s.logger.Info("local user data cleared", "removed", n)
}
