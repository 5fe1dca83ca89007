package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-copilot-be/pkg/identity"
	"support-copilot-be/pkg/store"
)

func TestSessionRepositoryRoundTrip(t *testing.T) {
	repo := NewSessionRepository(time.Hour)

	session := &store.Session{
		ID:       "session-1",
		Identity: identity.Identity{TenantID: "acme", Role: identity.RoleCustomer},
	}
	repo.Save(session)

	got, found := repo.Get("session-1")
	require.True(t, found)
	assert.Equal(t, "acme", got.Identity.TenantID)

	// The cache stores the pointer, so turns appended by the orchestrator
	// are visible on the next Get without a re-Save.
	got.AppendTurn(store.Turn{Query: "q", Answer: "a"})
	again, _ := repo.Get("session-1")
	assert.Len(t, again.Turns, 1)
}

func TestSessionRepositoryMissAndDelete(t *testing.T) {
	repo := NewSessionRepository(time.Hour)

	_, found := repo.Get("nope")
	assert.False(t, found)

	repo.Save(&store.Session{ID: "session-2"})
	repo.Delete("session-2")
	_, found = repo.Get("session-2")
	assert.False(t, found)
}

func TestSessionRepositoryExpiry(t *testing.T) {
	repo := NewSessionRepository(10 * time.Millisecond)
	repo.Save(&store.Session{ID: "session-3"})

	time.Sleep(30 * time.Millisecond)

	_, found := repo.Get("session-3")
	assert.False(t, found, "sessions past the TTL must read as gone")
}
