package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAddAssignsDistinctIDs(t *testing.T) {
	r := NewClients(zaptest.NewLogger(t))
	a := r.Add(1, "127.0.0.1:1")
	b := r.Add(2, "127.0.0.1:2")
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Registered())
}

func TestSetNameRegistersAndIndexes(t *testing.T) {
	r := NewClients(zaptest.NewLogger(t))
	a := r.Add(1, "127.0.0.1:1")
	r.SetName(a, "alice")

	assert.True(t, a.Registered())
	found, ok := r.FindByName("alice")
	require.True(t, ok)
	assert.Equal(t, a, found)
}

// P1: no two clients share a non-empty display name.
func TestNameTakenAcrossRegisteredAndUnregistered(t *testing.T) {
	r := NewClients(zaptest.NewLogger(t))
	a := r.Add(1, "127.0.0.1:1")
	r.SetName(a, "alice")
	r.Add(2, "127.0.0.1:2") // unregistered

	assert.True(t, r.NameTaken("alice"))
	assert.False(t, r.NameTaken("bob"))
}

func TestRegisteredExcludesCallerAndUnnamed(t *testing.T) {
	r := NewClients(zaptest.NewLogger(t))
	a := r.Add(1, "127.0.0.1:1")
	r.SetName(a, "alice")
	b := r.Add(2, "127.0.0.1:2")
	r.SetName(b, "bob")
	r.Add(3, "127.0.0.1:3")

	assert.Equal(t, []string{"bob"}, r.Registered(a))
}

// P4: after removal, no index still references the client.
func TestRemoveClearsEveryIndex(t *testing.T) {
	r := NewClients(zaptest.NewLogger(t))
	a := r.Add(1, "127.0.0.1:1")
	r.SetName(a, "alice")

	r.Remove(a)

	_, byFD := r.FindByFD(1)
	assert.False(t, byFD)
	_, byName := r.FindByName("alice")
	assert.False(t, byName)
	assert.False(t, r.NameTaken("alice"))
	assert.Empty(t, r.Registered(nil))
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := NewClients(zaptest.NewLogger(t))
	a := r.Add(1, "127.0.0.1:1")
	r.Remove(a)
	assert.NotPanics(t, func() { r.Remove(a) })
}
