package compare

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
)

func TestSessionStore_AddListRemove(t *testing.T) {
	store := NewSessionStore(time.Hour, 10, zerolog.Nop())

	require.NoError(t, store.Add("s1", "12/34"))
	require.NoError(t, store.Add("s1", "56/78"))
	require.NoError(t, store.Add("s1", "12/34")) // duplicate is a no-op
	require.NoError(t, store.Add("s2", "99/1"))

	assert.Equal(t, []string{"12/34", "56/78"}, store.List("s1"))
	assert.Equal(t, []string{"99/1"}, store.List("s2"))

	store.Remove("s1", "12/34")
	assert.Equal(t, []string{"56/78"}, store.List("s1"))

	store.Remove("s1", "no-such-pid")
	store.Remove("no-such-session", "12/34")
	assert.Equal(t, []string{"56/78"}, store.List("s1"))
}

func TestSessionStore_Add_Validation(t *testing.T) {
	store := NewSessionStore(time.Hour, 10, zerolog.Nop())

	require.ErrorIs(t, store.Add("", "12/34"), domain.ErrInvalidInput)
	require.ErrorIs(t, store.Add("s1", ""), domain.ErrInvalidInput)
}

func TestSessionStore_BoundedSize(t *testing.T) {
	store := NewSessionStore(time.Hour, 2, zerolog.Nop())

	require.NoError(t, store.Add("s1", "a"))
	require.NoError(t, store.Add("s1", "b"))
	require.ErrorIs(t, store.Add("s1", "c"), domain.ErrInvalidInput)

	// Re-adding an existing pid still succeeds on a full set.
	require.NoError(t, store.Add("s1", "a"))
	assert.Equal(t, []string{"a", "b"}, store.List("s1"))
}

func TestSessionStore_Clear(t *testing.T) {
	store := NewSessionStore(time.Hour, 10, zerolog.Nop())

	require.NoError(t, store.Add("s1", "12/34"))
	store.Clear("s1")
	assert.Nil(t, store.List("s1"))
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore(time.Minute, 10, zerolog.Nop())

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Add("s1", "12/34"))
	require.NoError(t, store.Add("s2", "56/78"))

	current = current.Add(2 * time.Minute)

	assert.Nil(t, store.List("s1"))

	removed := store.Sweep()
	assert.Equal(t, 2, removed)
	assert.Empty(t, store.sessions)
}

func TestSessionStore_ListCopies(t *testing.T) {
	store := NewSessionStore(time.Hour, 10, zerolog.Nop())

	require.NoError(t, store.Add("s1", "12/34"))
	pids := store.List("s1")
	pids[0] = "mutated"
	assert.Equal(t, []string{"12/34"}, store.List("s1"))
}
