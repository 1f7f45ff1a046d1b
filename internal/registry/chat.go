package registry

import (
	"go.uber.org/zap"

	"github.com/pankaj/chat-relay/internal/ids"
)

// Chat is a directed (initiator, target) pair awaiting or holding approval.
type Chat struct {
	ID        ids.ChatID
	Initiator *Client
	Target    *Client
	Approved  bool
}

// Peer returns the other member of the chat relative to of, or nil if of
// is not a member.
func (c *Chat) Peer(of *Client) *Client {
	switch of {
	case c.Initiator:
		return c.Target
	case c.Target:
		return c.Initiator
	default:
		return nil
	}
}

// HasMember reports whether client is either member of the chat.
func (c *Chat) HasMember(client *Client) bool {
	return client == c.Initiator || client == c.Target
}

// Chats is the server-wide chat collection.
type Chats struct {
	logger *zap.Logger
	byID   map[ids.ChatID]*Chat
	order  []*Chat
}

// NewChats builds an empty registry.
func NewChats(logger *zap.Logger) *Chats {
	return &Chats{logger: logger, byID: make(map[ids.ChatID]*Chat)}
}

// Add creates a new pending chat from initiator to target.
func (r *Chats) Add(initiator, target *Client) *Chat {
	chat := &Chat{ID: ids.NewChatID(), Initiator: initiator, Target: target}
	r.byID[chat.ID] = chat
	r.order = append(r.order, chat)
	r.logger.Info("created chat",
		zap.String("chat_id", chat.ID.String()),
		zap.String("initiator", initiator.Name),
		zap.String("target", target.Name),
	)
	return chat
}

// ActiveOf returns the approved chat client belongs to, if any. spec.md
// §3 invariant (b) guarantees at most one exists.
func (r *Chats) ActiveOf(client *Client) (*Chat, bool) {
	for _, c := range r.order {
		if c.Approved && c.HasMember(client) {
			return c, true
		}
	}
	return nil, false
}

// Pending returns the pending chat with the given ordered (initiator,
// target) pair, if any. spec.md §3 invariant (c) guarantees at most one.
func (r *Chats) Pending(initiator, target *Client) (*Chat, bool) {
	for _, c := range r.order {
		if !c.Approved && c.Initiator == initiator && c.Target == target {
			return c, true
		}
	}
	return nil, false
}

// PendingTargeting returns every pending chat targeting client, in the
// order they were created — see spec.md §9's "pending only" resolution
// of the /requests open question.
func (r *Chats) PendingTargeting(client *Client) []*Chat {
	var out []*Chat
	for _, c := range r.order {
		if !c.Approved && c.Target == client {
			out = append(out, c)
		}
	}
	return out
}

// Approve flips a pending chat to active.
func (r *Chats) Approve(chat *Chat) {
	chat.Approved = true
	r.logger.Info("chat approved", zap.String("chat_id", chat.ID.String()))
}

// Remove deletes a single chat. Idempotent.
func (r *Chats) Remove(chat *Chat) {
	if chat == nil {
		return
	}
	if _, ok := r.byID[chat.ID]; !ok {
		return
	}
	delete(r.byID, chat.ID)
	for i, o := range r.order {
		if o == chat {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info("chat removed", zap.String("chat_id", chat.ID.String()))
}

// RemoveAllOf deletes every chat (pending or active) client belongs to —
// spec.md §3 invariant (d).
func (r *Chats) RemoveAllOf(client *Client) {
	var victims []*Chat
	for _, c := range r.order {
		if c.HasMember(client) {
			victims = append(victims, c)
		}
	}
	for _, c := range victims {
		r.Remove(c)
	}
}
