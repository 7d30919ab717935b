package migration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kalambet/solace/internal/localstore"
	"github.com/kalambet/solace/internal/profile"
	"github.com/kalambet/solace/internal/userstore"
)

func newLocal(t *testing.T) (*localstore.Store, *userstore.Local) {
	t.Helper()
	kv, err := localstore.Open("")
	require.NoError(t, err)
	return kv, userstore.NewLocal(kv)
}

func newRemote(t *testing.T) *userstore.Direct {
	t.Helper()
	d := userstore.NewDirect(userstore.NewConnector(":memory:", nil), userstore.RetryPolicy{Attempts: 1})
	t.Cleanup(func() { d.Close() })
	return d
}

func bob() profile.Record {
	r := profile.NewRecord("bob")
	r.ChatHistory = []profile.ChatMessage{{Message: "hi", Timestamp: 1000}}
	return r
}

func TestMigrate_CopiesMissingRecord(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	_, local := newLocal(t)
	remote := newRemote(t)
	defer remote.Close()
	require.NoError(t, local.Put(ctx, "bob", bob()))

	res := New(local, remote).Migrate(ctx)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"bob"}, res.MigratedKeys)
	assert.Empty(t, res.Errors)

	got, err := remote.Get(ctx, "bob")
	require.NoError(t, err)
	if diff := cmp.Diff(bob(), got); diff != "" {
		t.Errorf("remote record (-want +got):\n%s", diff)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	_, local := newLocal(t)
	remote := newRemote(t)
	for _, u := range []string{"carol", "bob", "alice"} {
		r := profile.NewRecord(u)
		r.Taglines.Music = u + " mix"
		require.NoError(t, local.Put(ctx, u, r))
	}
	// Already remote: must be skipped, not overwritten.
	existing := profile.NewRecord("carol")
	existing.Taglines.Music = "remote wins"
	require.NoError(t, remote.Put(ctx, "carol", existing))

	svc := New(local, remote, WithConcurrency(2))

	first := svc.Migrate(ctx)
	assert.True(t, first.Success)
	assert.Equal(t, []string{"alice", "bob"}, first.MigratedKeys)
	snapshot := dump(t, remote, "alice", "bob", "carol")

	second := svc.Migrate(ctx)
	assert.True(t, second.Success)
	assert.Empty(t, second.MigratedKeys)
	assert.Equal(t, snapshot, dump(t, remote, "alice", "bob", "carol"))

	carol, err := remote.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "remote wins", carol.Taglines.Music)
}

func dump(t *testing.T, remote *userstore.Direct, names ...string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, n := range names {
		r, err := remote.Get(context.Background(), n)
		require.NoError(t, err)
		b, err := json.Marshal(r)
		require.NoError(t, err)
		out[n] = string(b)
	}
	return out
}

type flakyTarget struct {
	mu      sync.Mutex
	failFor map[string]bool
	stored  map[string]profile.Record
}

func (f *flakyTarget) Exists(_ context.Context, u string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stored[u]
	return ok, nil
}

func (f *flakyTarget) Put(_ context.Context, u string, r profile.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[u] {
		return errors.New("write refused")
	}
	f.stored[u] = r
	return nil
}

func TestMigrate_PartialFailureContinues(t *testing.T) {
	ctx := context.Background()

	kv, local := newLocal(t)
	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, local.Put(ctx, u, profile.NewRecord(u)))
	}
	require.NoError(t, kv.Set("user_broken", "{not json"))

	target := &flakyTarget{failFor: map[string]bool{"b": true}, stored: map[string]profile.Record{}}
	res := New(local, target).Migrate(ctx)

	assert.False(t, res.Success)
	assert.Equal(t, []string{"a", "c"}, res.MigratedKeys)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "b")
	assert.Contains(t, res.Errors[1], "broken")
}

func TestMigrate_EmptyResultSerializesArrays(t *testing.T) {
	_, local := newLocal(t)
	res := New(local, newRemote(t)).Migrate(context.Background())

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"migratedKeys":[],"errors":[]}`, string(b))
}

func TestClear_KeepsCurrentUser(t *testing.T) {
	ctx := context.Background()
	_, local := newLocal(t)
	require.NoError(t, local.Put(ctx, "bob", bob()))
	require.NoError(t, local.SetCurrentUser("bob"))

	remote := newRemote(t)
	New(local, remote).Clear(ctx)

	assert.Empty(t, local.Usernames())
	u, ok := local.CurrentUser()
	assert.True(t, ok)
	assert.Equal(t, "bob", u)

	ok, err := remote.Exists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok, "clear must not touch the remote store")
}

func TestClear_CancelledLeavesRecords(t *testing.T) {
	_, local := newLocal(t)
	require.NoError(t, local.Put(context.Background(), "bob", bob()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	New(local, newRemote(t)).Clear(ctx)

	assert.Equal(t, []string{"bob"}, local.Usernames())
}

// Compile-time checks that the store variants satisfy the interfaces.
var (
	_ Source = (*userstore.Local)(nil)
	_ Target = (*userstore.Direct)(nil)
	_ Target = (*userstore.HTTP)(nil)
)
