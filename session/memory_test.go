package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenUnique(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	acct := Account{DisplayName: "tester", MID: "42", SessData: "secret"}

	token := NewToken()
	require.NoError(t, store.Put(ctx, token, acct, time.Hour))

	got, found, err := store.Get(ctx, token)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, acct, got)

	require.NoError(t, store.Delete(ctx, token))
	_, found, err = store.Get(ctx, token)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore()
	_, found, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	// Deleting an unknown token is not an error.
	require.NoError(t, store.Delete(context.Background(), "nope"))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	current := time.Unix(1000, 0)
	store.now = func() time.Time { return current }

	token := NewToken()
	require.NoError(t, store.Put(ctx, token, Account{MID: "42"}, time.Minute))

	_, found, _ := store.Get(ctx, token)
	assert.True(t, found)

	current = current.Add(2 * time.Minute)
	_, found, _ = store.Get(ctx, token)
	assert.False(t, found, "expired session must not resolve")
}

func TestMemoryStoreSweepRemovesExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	current := time.Unix(1000, 0)
	store.now = func() time.Time { return current }

	for i := 0; i < 100; i++ {
		require.NoError(t, store.Put(ctx, NewToken(), Account{}, time.Minute))
	}
	current = current.Add(time.Hour)
	// The periodic sweep runs when the map size reaches a multiple of 100.
	require.NoError(t, store.Put(ctx, NewToken(), Account{}, time.Minute))

	store.mu.RLock()
	size := len(store.sessions)
	store.mu.RUnlock()
	assert.Equal(t, 1, size, "sweep should drop the 100 expired sessions")
}
