// Package session implements the per-connection state machine of
// spec.md §4.4: Greeting → Registering → Idle/Dispatch → Disconnect,
// built as a chain of scheduler.Task continuations so that a whole
// connection's lifetime runs on the scheduler's single goroutine with
// no blocking call anywhere in it. This is the Go-native reading of
// app/client_handler.py's per-connection generator coroutine.
package session

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pankaj/chat-relay/internal/registry"
	"github.com/pankaj/chat-relay/internal/scheduler"
	"github.com/pankaj/chat-relay/internal/sock"
	"github.com/pankaj/chat-relay/internal/wire"
)

// Session owns one accepted connection: its socket, its line assembler,
// its pending outbound bytes, and the registry entries that represent
// it to the rest of the server.
type Session struct {
	logger *zap.Logger
	sched  *scheduler.Scheduler

	clients  *registry.Clients
	chats    *registry.Chats
	sessions *Sessions

	fd     int
	client *registry.Client

	assembler *wire.Assembler
	readBuf   [wire.ReadChunkSize]byte

	outbox   []byte
	flushing bool
	closed   bool
}

// New registers fd as a Client and constructs its Session. It does not
// start the connection's tasks — call Start for that.
func New(logger *zap.Logger, sched *scheduler.Scheduler, clients *registry.Clients, chats *registry.Chats, sessions *Sessions, fd int, remoteAddr string) *Session {
	s := &Session{
		logger:    logger,
		sched:     sched,
		clients:   clients,
		chats:     chats,
		sessions:  sessions,
		fd:        fd,
		assembler: wire.NewAssembler(),
	}
	s.client = clients.Add(fd, remoteAddr)
	sessions.Register(s)
	return s
}

// Start sends the greeting and spawns the connection's read loop.
func (s *Session) Start() {
	s.enqueue(msgGreeting)
	s.sched.Spawn(scheduler.TaskFunc(s.readStep))
}

// readStep is the Read-side continuation: one non-blocking recv, then
// synchronous processing of every complete line it yielded, then back
// to waiting for the next readiness event. Multiple lines buffered from
// a single recv are dispatched without another read, per spec.md §4.2.
func (s *Session) readStep() (scheduler.Want, scheduler.Task, bool) {
	n, err := sock.Read(s.fd, s.readBuf[:])
	if err != nil {
		if err == sock.ErrWouldBlock {
			return scheduler.Want{FD: s.fd, Dir: scheduler.Read}, scheduler.TaskFunc(s.readStep), false
		}
		s.teardown()
		return scheduler.Want{}, nil, true
	}

	for _, line := range s.assembler.Feed(s.readBuf[:n]) {
		s.handleLine(line)
		if s.closed {
			return scheduler.Want{}, nil, true
		}
	}

	return scheduler.Want{FD: s.fd, Dir: scheduler.Read}, scheduler.TaskFunc(s.readStep), false
}

// handleLine advances the state machine by exactly one wire line:
// username registration before the client has a name, command dispatch
// or chat-text relay once it does.
func (s *Session) handleLine(line string) {
	if !s.client.Registered() {
		s.handleRegistration(line)
		return
	}

	cmd, isCommand, chatText := wire.ClassifyLine(line)
	if isCommand {
		if cmd.Name == "" {
			s.enqueue(msgUnknownCommand(""))
			return
		}
		s.route(dispatch(s, s.client, cmd.Name, cmd.Args))
		return
	}

	if chatText == "" {
		return
	}
	s.relayChatText(chatText)
}

func (s *Session) handleRegistration(line string) {
	name := strings.TrimSpace(line)
	if name == "" || s.clients.NameTaken(name) {
		s.enqueue(msgUsernameTaken)
		return
	}
	s.clients.SetName(s.client, name)
	s.enqueue(helpText())
}

// relayChatText forwards a non-command line to the caller's active chat
// partner as "<sender>: <text>", or tells them they have none, per
// spec.md §4.4.
func (s *Session) relayChatText(text string) {
	active, ok := s.chats.ActiveOf(s.client)
	if !ok {
		s.enqueue(msgNotInAnyChat)
		return
	}
	s.sessions.Deliver(active.Peer(s.client), s.client.Name+": "+text)
}

// route delivers each reply a command produced to its addressee,
// wherever that addressee's session happens to live.
func (s *Session) route(outs []outbound) {
	for _, o := range outs {
		s.sessions.Deliver(o.to, o.text)
	}
}

// enqueue appends a reply line to this session's outbox and ensures a
// flush task is (or becomes) active for it.
func (s *Session) enqueue(text string) {
	if s.closed {
		return
	}
	s.outbox = append(s.outbox, wire.EncodeLine(text)...)
	if !s.flushing {
		s.flushing = true
		s.sched.Spawn(scheduler.TaskFunc(s.flushStep))
	}
}

// flushStep is the Write-side continuation: drain the outbox with
// non-blocking sends, suspending on write-readiness whenever the socket
// buffer is full, until the outbox empties.
func (s *Session) flushStep() (scheduler.Want, scheduler.Task, bool) {
	for len(s.outbox) > 0 {
		n, err := sock.Write(s.fd, s.outbox)
		if err != nil {
			if err == sock.ErrWouldBlock {
				return scheduler.Want{FD: s.fd, Dir: scheduler.Write}, scheduler.TaskFunc(s.flushStep), false
			}
			s.teardown()
			return scheduler.Want{}, nil, true
		}
		s.outbox = s.outbox[n:]
	}
	s.flushing = false
	return scheduler.Want{}, nil, true
}

// teardown releases everything this session holds: its chats, its
// client identity, its scheduler waiters, and its socket. Idempotent,
// since both readStep and flushStep can independently discover a dead
// connection.
//
// Unlike the /disconnect command, a transport-level teardown does not
// notify the peer of an active chat — spec.md §8 scenario S6 and
// app/server.py's __disconnect_client agree: the peer only discovers
// the chat is gone the next time it tries to use it.
func (s *Session) teardown() {
	if s.closed {
		return
	}
	s.closed = true

	s.chats.RemoveAllOf(s.client)
	s.clients.Remove(s.client)
	s.sessions.Unregister(s.fd)

	s.sched.Cancel(s.fd)
	_ = sock.Close(s.fd)

	s.logger.Debug("session closed", zap.Int("fd", s.fd))
}
