package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClients(t *testing.T, names ...string) []*Client {
	t.Helper()
	r := NewClients(zaptest.NewLogger(t))
	out := make([]*Client, len(names))
	for i, n := range names {
		c := r.Add(i+1, "127.0.0.1:0")
		r.SetName(c, n)
		out[i] = c
	}
	return out
}

func TestAddCreatesPendingChat(t *testing.T) {
	clients := newTestClients(t, "alice", "bob")
	chats := NewChats(zaptest.NewLogger(t))

	chat := chats.Add(clients[0], clients[1])
	assert.False(t, chat.Approved)
	assert.Equal(t, clients[1], chat.Peer(clients[0]))
	assert.Equal(t, clients[0], chat.Peer(clients[1]))
	assert.Nil(t, chat.Peer(nil))
}

// P2: a client belongs to at most one active chat.
func TestActiveOfReturnsApprovedChatOnly(t *testing.T) {
	clients := newTestClients(t, "alice", "bob", "carol")
	chats := NewChats(zaptest.NewLogger(t))

	pending := chats.Add(clients[0], clients[1])
	_, ok := chats.ActiveOf(clients[0])
	assert.False(t, ok)

	chats.Approve(pending)
	active, ok := chats.ActiveOf(clients[0])
	require.True(t, ok)
	assert.Equal(t, pending, active)

	_, ok = chats.ActiveOf(clients[2])
	assert.False(t, ok)
}

// P3: at most one pending chat per ordered (initiator, target) pair.
func TestPendingIsOrderedPairScoped(t *testing.T) {
	clients := newTestClients(t, "alice", "bob")
	chats := NewChats(zaptest.NewLogger(t))

	chats.Add(clients[0], clients[1])
	_, reverseExists := chats.Pending(clients[1], clients[0])
	assert.False(t, reverseExists, "reverse-direction pair must be distinct")

	forward, ok := chats.Pending(clients[0], clients[1])
	require.True(t, ok)
	assert.False(t, forward.Approved)
}

func TestPendingTargetingPreservesCreationOrder(t *testing.T) {
	clients := newTestClients(t, "alice", "bob", "carol")
	chats := NewChats(zaptest.NewLogger(t))

	chats.Add(clients[0], clients[2])
	chats.Add(clients[1], clients[2])

	targeting := chats.PendingTargeting(clients[2])
	require.Len(t, targeting, 2)
	assert.Equal(t, clients[0], targeting[0].Initiator)
	assert.Equal(t, clients[1], targeting[1].Initiator)
}

// Open question resolution: PendingTargeting must exclude already-approved
// chats (spec.md §9's "pending only" reading of /requests).
func TestPendingTargetingExcludesApproved(t *testing.T) {
	clients := newTestClients(t, "alice", "bob")
	chats := NewChats(zaptest.NewLogger(t))

	chat := chats.Add(clients[0], clients[1])
	chats.Approve(chat)

	assert.Empty(t, chats.PendingTargeting(clients[1]))
}

// P4: disconnect cleanliness — removing a client removes every chat
// (pending or active) referencing it.
func TestRemoveAllOfDeletesEveryMembership(t *testing.T) {
	clients := newTestClients(t, "alice", "bob", "carol")
	chats := NewChats(zaptest.NewLogger(t))

	active := chats.Add(clients[0], clients[1])
	chats.Approve(active)
	pendingFromCarol := chats.Add(clients[2], clients[0])

	chats.RemoveAllOf(clients[0])

	_, ok := chats.ActiveOf(clients[1])
	assert.False(t, ok)
	_, ok = chats.Pending(clients[2], clients[0])
	assert.False(t, ok)
	assert.NotContains(t, chats.PendingTargeting(clients[0]), pendingFromCarol)
}

func TestRemoveIsIdempotent(t *testing.T) {
	clients := newTestClients(t, "alice", "bob")
	chats := NewChats(zaptest.NewLogger(t))
	chat := chats.Add(clients[0], clients[1])

	chats.Remove(chat)
	assert.NotPanics(t, func() { chats.Remove(chat) })
	assert.NotPanics(t, func() { chats.Remove(nil) })
}
