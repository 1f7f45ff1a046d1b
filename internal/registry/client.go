// Package registry holds the server-wide Client and Chat collections and
// the invariants spec.md §3 places on them. Every mutation here runs on
// the scheduler's single goroutine — there is deliberately no locking,
// mirroring app/repositories.py's bare module-level sets.
package registry

import (
	"go.uber.org/zap"

	"github.com/pankaj/chat-relay/internal/ids"
)

// Client is a connected peer. Name is empty until registration succeeds.
type Client struct {
	ID         ids.ClientID
	FD         int
	RemoteAddr string
	Name       string
}

// Registered reports whether the client has completed the name handshake.
func (c *Client) Registered() bool {
	return c.Name != ""
}

// Clients is the server-wide client collection, indexed by socket fd and,
// once registered, by display name.
type Clients struct {
	logger *zap.Logger
	byID   map[ids.ClientID]*Client
	byFD   map[int]*Client
	byName map[string]*Client
	order  []*Client
}

// NewClients builds an empty registry.
func NewClients(logger *zap.Logger) *Clients {
	return &Clients{
		logger: logger,
		byID:   make(map[ids.ClientID]*Client),
		byFD:   make(map[int]*Client),
		byName: make(map[string]*Client),
	}
}

// Add creates an unregistered client for a freshly accepted socket.
func (r *Clients) Add(fd int, remoteAddr string) *Client {
	c := &Client{ID: ids.NewClientID(), FD: fd, RemoteAddr: remoteAddr}
	r.byID[c.ID] = c
	r.byFD[fd] = c
	r.order = append(r.order, c)
	r.logger.Info("created client", zap.String("client_id", c.ID.String()), zap.Int("fd", fd), zap.String("remote_addr", remoteAddr))
	return c
}

// FindByFD looks up the client owning a given socket, if any.
func (r *Clients) FindByFD(fd int) (*Client, bool) {
	c, ok := r.byFD[fd]
	return c, ok
}

// FindByName looks up a registered client by display name.
func (r *Clients) FindByName(name string) (*Client, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// NameTaken reports whether name is already held by any known client,
// registered or not — the snapshot check spec.md §4.4 requires for
// registration to resolve uniqueness races between two unregistered
// clients racing to claim the same name.
func (r *Clients) NameTaken(name string) bool {
	for _, c := range r.order {
		if c.Name == name {
			return true
		}
	}
	return false
}

// SetName assigns c's display name, indexing it for FindByName. Callers
// must have already confirmed !NameTaken(name).
func (r *Clients) SetName(c *Client, name string) {
	c.Name = name
	r.byName[name] = c
	r.logger.Info("registered client", zap.String("client_id", c.ID.String()), zap.String("name", name))
}

// Registered returns every registered client's display name, in
// registration order, excluding the given client.
func (r *Clients) Registered(except *Client) []string {
	names := make([]string, 0, len(r.order))
	for _, c := range r.order {
		if c == except || !c.Registered() {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

// Remove deletes a client from every index. Idempotent.
func (r *Clients) Remove(c *Client) {
	if c == nil {
		return
	}
	if _, ok := r.byID[c.ID]; !ok {
		return
	}
	delete(r.byID, c.ID)
	delete(r.byFD, c.FD)
	if c.Name != "" {
		delete(r.byName, c.Name)
	}
	for i, o := range r.order {
		if o == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info("deleted client", zap.String("client_id", c.ID.String()))
}
