package session

import "github.com/pankaj/chat-relay/internal/registry"

// Sessions routes a reply addressed to a registry.Client to whichever
// live Session currently owns that client's socket. It is the one
// piece of cross-connection state the scheduler's single goroutine
// touches directly — a plain map, since nothing here runs concurrently.
type Sessions struct {
	byFD map[int]*Session
}

// NewSessions constructs an empty router.
func NewSessions() *Sessions {
	return &Sessions{byFD: make(map[int]*Session)}
}

// Register makes s reachable by its fd.
func (r *Sessions) Register(s *Session) {
	r.byFD[s.fd] = s
}

// Unregister drops s once its connection has been torn down.
func (r *Sessions) Unregister(fd int) {
	delete(r.byFD, fd)
}

// Deliver hands text to c's live session, if it still has one. A
// client whose session already closed silently drops the message —
// spec.md §7 treats a vanished peer as expected, not an error.
func (r *Sessions) Deliver(c *registry.Client, text string) {
	if c == nil {
		return
	}
	s, ok := r.byFD[c.FD]
	if !ok {
		return
	}
	s.enqueue(text)
}
