package userstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/solace/internal/localstore"
	"github.com/kalambet/solace/internal/profile"
)

func TestLocal_UsernamesAndClear(t *testing.T) {
	ctx := context.Background()
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "local.json"))
	require.NoError(t, err)
	l := NewLocal(kv)

	require.NoError(t, l.Put(ctx, "zed", sample("zed")))
	require.NoError(t, l.Create(ctx, "amy"))
	require.NoError(t, l.SetCurrentUser("amy"))

	assert.Equal(t, []string{"amy", "zed"}, l.Usernames())

	removed := l.ClearUsers(ctx, nil)
	assert.Equal(t, 2, removed)
	assert.Empty(t, l.Usernames())

	u, ok := l.CurrentUser()
	assert.True(t, ok, "current-user marker must survive ClearUsers")
	assert.Equal(t, "amy", u)

	require.NoError(t, l.ClearCurrentUser())
	_, ok = l.CurrentUser()
	assert.False(t, ok)
}

func TestLocal_CorruptRecord(t *testing.T) {
	kv, err := localstore.Open("")
	require.NoError(t, err)
	require.NoError(t, kv.Set("user_bad", "{not json"))

	_, err = NewLocal(kv).Get(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLocal_PutForcesKeyUsername(t *testing.T) {
	ctx := context.Background()
	kv, _ := localstore.Open("")
	l := NewLocal(kv)

	require.NoError(t, l.Put(ctx, "alice", sample("mallory")))
	got, err := l.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	ok, _ := l.Exists(ctx, "mallory")
	assert.False(t, ok)
}

func TestLocal_ClearUsersStopsOnCancel(t *testing.T) {
	kv, err := localstore.Open("")
	require.NoError(t, err)
	l := NewLocal(kv)
	require.NoError(t, l.Create(context.Background(), "amy"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, l.ClearUsers(ctx, nil))
	assert.Equal(t, []string{"amy"}, l.Usernames())
}

func TestLocal_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "local.json"))
	require.NoError(t, err)
	l := NewLocal(kv)
	require.NoError(t, l.Create(ctx, "alice"))

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Update(ctx, "alice", func(r *profile.Record) error {
				r.ChatHistory = append(r.ChatHistory, profile.ChatMessage{Message: fmt.Sprint(i), Timestamp: int64(i)})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := l.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got.ChatHistory, n)
}

func TestLocal_PatchRejectsInvalidMerge(t *testing.T) {
	ctx := context.Background()
	kv, err := localstore.Open("")
	require.NoError(t, err)
	l := NewLocal(kv)
	require.NoError(t, l.Put(ctx, "alice", sample("alice")))

	bad := profile.Taglines{Books: profile.BookList{Names: []string{"a", "b"}, Details: []string{"x"}}}
	err = l.Patch(ctx, "alice", profile.Patch{Taglines: &bad})
	require.ErrorIs(t, err, profile.ErrInvalidRecord)

	got, err := l.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Atomic Habits"}, got.Taglines.Books.Names)
	assert.Equal(t, []string{"small changes"}, got.Taglines.Books.Details)
}
