package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/solace/internal/profile"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(username string) profile.Record {
	r := profile.NewRecord(username)
	r.ChatHistory = []profile.ChatMessage{{Message: "hi", Timestamp: 1000}}
	r.Suggestions = []profile.Suggestion{
		{ID: "s1", Title: "Walk", Description: "Short walk", Category: profile.CategoryActivities},
	}
	r.Taglines.Music = "calm focus"
	r.DashboardData["streak"] = float64(2)
	return r
}

// TestMigrationsIdempotent opens the same file twice and verifies the
// schema_version count stays the same.
func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "solace.db")

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations(context.Background())
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) < 2 {
		t.Fatalf("expected at least two applied migrations, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetUser(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser err = %v, want ErrNotFound", err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	want := testRecord("alice")
	if err := s.PutUser(ctx, "alice", want); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPutUser_KeyWinsOverBody(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.PutUser(ctx, "alice", testRecord("mallory")); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want alice", got.Username)
	}
	if ok, _ := s.UserExists(ctx, "mallory"); ok {
		t.Error("body username should not create a second row")
	}
}

func TestPutUser_UpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.PutUser(ctx, "alice", testRecord("alice")); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	var created string
	if err := s.db.QueryRow("SELECT created_at FROM users WHERE username = 'alice'").Scan(&created); err != nil {
		t.Fatal(err)
	}

	replacement := profile.NewRecord("alice")
	replacement.Taglines.Music = "upbeat"
	if err := s.PutUser(ctx, "alice", replacement); err != nil {
		t.Fatalf("second PutUser: %v", err)
	}

	var count int
	var created2 string
	if err := s.db.QueryRow("SELECT COUNT(*), MAX(created_at) FROM users").Scan(&count, &created2); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
	if created2 != created {
		t.Errorf("created_at changed: %s -> %s", created, created2)
	}

	got, _ := s.GetUser(ctx, "alice")
	if got.Taglines.Music != "upbeat" || len(got.ChatHistory) != 0 {
		t.Errorf("put did not fully replace: %+v", got)
	}
}

func TestPatchUser_OnlyPresentFields(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	before := testRecord("alice")
	if err := s.PutUser(ctx, "alice", before); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	done := map[string]bool{"s1": true}
	if err := s.PatchUser(ctx, "alice", profile.Patch{CompletedItems: &done}); err != nil {
		t.Fatalf("PatchUser: %v", err)
	}

	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !got.CompletedItems["s1"] {
		t.Error("completedItems not patched")
	}
	got.CompletedItems = before.CompletedItems
	if diff := cmp.Diff(before, got); diff != "" {
		t.Errorf("patch touched sibling fields (-before +after):\n%s", diff)
	}
}

func TestPatchUser_MissingFailsClosed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	music := profile.Taglines{Music: "x"}
	err := s.PatchUser(ctx, "ghost", profile.Patch{Taglines: &music})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("PatchUser err = %v, want ErrNotFound", err)
	}
	if ok, _ := s.UserExists(ctx, "ghost"); ok {
		t.Error("patch on missing user must not create it")
	}
}

func TestUpdateUser_ErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.PutUser(ctx, "alice", testRecord("alice")); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := s.UpdateUser(ctx, "alice", func(r *profile.Record) error {
		r.Taglines.Music = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("UpdateUser err = %v, want boom", err)
	}
	got, _ := s.GetUser(ctx, "alice")
	if got.Taglines.Music != "calm focus" {
		t.Errorf("failed update was persisted: %q", got.Taglines.Music)
	}
}

func TestPatchUser_RejectsInvalidMerge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.PutUser(ctx, "alice", testRecord("alice")); err != nil {
		t.Fatal(err)
	}
	bad := profile.Taglines{Books: profile.BookList{Names: []string{"a", "b"}, Details: []string{"x"}}}
	err := s.PatchUser(ctx, "alice", profile.Patch{Taglines: &bad})
	if !errors.Is(err, profile.ErrInvalidRecord) {
		t.Fatalf("PatchUser err = %v, want ErrInvalidRecord", err)
	}

	dup := []profile.Suggestion{
		{ID: "s1", Title: "A", Category: profile.CategoryMusic},
		{ID: "s1", Title: "B", Category: profile.CategoryMusic},
	}
	err = s.PatchUser(ctx, "alice", profile.Patch{Suggestions: &dup})
	if !errors.Is(err, profile.ErrInvalidRecord) {
		t.Fatalf("PatchUser err = %v, want ErrInvalidRecord", err)
	}

	got, _ := s.GetUser(ctx, "alice")
	if diff := cmp.Diff(testRecord("alice"), got); diff != "" {
		t.Errorf("rejected patch was persisted (-want +got):\n%s", diff)
	}

	if err := s.UpdateUser(ctx, "alice", func(r *profile.Record) error {
		r.Taglines.Music = "after"
		return nil
	}); err != nil {
		t.Fatalf("UpdateUser after rejected patch: %v", err)
	}
}

func TestUserExistsAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, u := range []string{"zed", "amy", "bob"} {
		if err := s.PutUser(ctx, u, profile.NewRecord(u)); err != nil {
			t.Fatal(err)
		}
	}

	ok, err := s.UserExists(ctx, "bob")
	if err != nil || !ok {
		t.Errorf("UserExists(bob) = %v, %v", ok, err)
	}
	ok, err = s.UserExists(ctx, "carl")
	if err != nil || ok {
		t.Errorf("UserExists(carl) = %v, %v", ok, err)
	}

	names, err := s.ListUsernames(ctx)
	if err != nil {
		t.Fatalf("ListUsernames: %v", err)
	}
	if diff := cmp.Diff([]string{"amy", "bob", "zed"}, names); diff != "" {
		t.Errorf("ListUsernames (-want +got):\n%s", diff)
	}
}

func TestConcurrentPatches(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.PutUser(ctx, "alice", profile.NewRecord("alice")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.UpdateUser(ctx, "alice", func(r *profile.Record) error {
				r.AppendChat("msg", time.UnixMilli(int64(len(r.ChatHistory))))
				return nil
			}); err != nil {
				t.Errorf("UpdateUser: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetUser(ctx, "alice")
	if len(got.ChatHistory) != 10 {
		t.Errorf("chat history = %d messages, want 10", len(got.ChatHistory))
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dsn  string
		want Dialect
	}{
		{":memory:", DialectSQLite},
		{"/var/lib/solace/solace.db", DialectSQLite},
		{"postgres://u:p@localhost/solace?sslmode=disable", DialectPostgres},
		{"postgresql://localhost/solace", DialectPostgres},
		{"libsql://solace-acme.turso.io", DialectLibSQL},
		{"https://solace-acme.turso.io", DialectLibSQL},
		{"ws://localhost:8080", DialectLibSQL},
	}
	for _, tt := range tests {
		if got := DialectFor(tt.dsn); got != tt.want {
			t.Errorf("DialectFor(%q) = %s, want %s", tt.dsn, got, tt.want)
		}
	}
}

func TestWithAuthToken(t *testing.T) {
	tests := []struct {
		dsn, token, want string
	}{
		{"libsql://db.turso.io", "tok", "libsql://db.turso.io?authToken=tok"},
		{"libsql://db.turso.io?tls=1", "tok", "libsql://db.turso.io?tls=1&authToken=tok"},
		{"libsql://db.turso.io", "", "libsql://db.turso.io"},
		{"/tmp/solace.db", "tok", "/tmp/solace.db"},
	}
	for _, tt := range tests {
		if got := WithAuthToken(tt.dsn, tt.token); got != tt.want {
			t.Errorf("WithAuthToken(%q, %q) = %q, want %q", tt.dsn, tt.token, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "UPDATE users SET document = ?, updated_at = ? WHERE username = ?"
	if got := rebind(DialectSQLite, q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	want := "UPDATE users SET document = $1, updated_at = $2 WHERE username = $3"
	if got := rebind(DialectPostgres, q); got != want {
		t.Errorf("postgres rebind = %s", got)
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("expected error for empty dsn")
	}
}

func TestCreateUser_DoesNotClobber(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created, err := s.CreateUser(ctx, "alice")
	if err != nil || !created {
		t.Fatalf("CreateUser = %v, %v", created, err)
	}
	if err := s.PutUser(ctx, "alice", testRecord("alice")); err != nil {
		t.Fatal(err)
	}

	created, err = s.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("second CreateUser: %v", err)
	}
	if created {
		t.Error("second CreateUser reported an insert")
	}
	got, _ := s.GetUser(ctx, "alice")
	if len(got.ChatHistory) != 1 {
		t.Errorf("existing record clobbered: %+v", got)
	}
}
