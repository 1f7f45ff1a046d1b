// Package server is the top-level facade of spec.md §4.6: it owns the
// listening socket, the registries, the scheduler, and the connection
// router, and wires them together into one runnable process.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/buildkite/roko"
	"go.uber.org/zap"

	"github.com/pankaj/chat-relay/internal/logging"
	"github.com/pankaj/chat-relay/internal/registry"
	"github.com/pankaj/chat-relay/internal/scheduler"
	"github.com/pankaj/chat-relay/internal/session"
	"github.com/pankaj/chat-relay/internal/sock"
)

// Server is the chat relay process: one listening socket multiplexed
// over one cooperative scheduler, fanning out to per-connection Sessions.
type Server struct {
	logger *zap.Logger
	host   string
	port   int

	listenFD int
	addr     string
	sched    *scheduler.Scheduler
	clients  *registry.Clients
	chats    *registry.Chats
	sessions *session.Sessions

	acceptErr error
}

// New builds a Server bound to host:port. It does not open the socket
// or start the scheduler yet — Run does both.
func New(logger *zap.Logger, host string, port int) (*Server, error) {
	sched, err := scheduler.New(logging.Named(logger, "scheduler"))
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	return &Server{
		logger:   logging.Named(logger, "server"),
		host:     host,
		port:     port,
		listenFD: -1,
		sched:    sched,
		clients:  registry.NewClients(logging.Named(logger, "clients")),
		chats:    registry.NewChats(logging.Named(logger, "chats")),
		sessions: session.NewSessions(),
	}, nil
}

// Run binds the listening socket, retrying transient bind failures
// (e.g. a predecessor process's socket still draining TIME_WAIT across
// a fast restart), then drives the scheduler until ctx is cancelled or
// Shutdown is called. It returns once the scheduler loop has drained.
func (s *Server) Run(ctx context.Context) error {
	if err := s.listen(ctx); err != nil {
		return err
	}
	defer s.sched.Close()
	defer sock.Close(s.listenFD)

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-stopWatch:
		}
	}()

	s.sched.Spawn(scheduler.TaskFunc(s.acceptStep))

	s.logger.Info("listening", zap.String("host", s.host), zap.Int("port", s.port))
	if err := s.sched.Run(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if s.acceptErr != nil {
		return fmt.Errorf("server: %w", s.acceptErr)
	}
	return nil
}

// Shutdown asks Run's scheduler loop to stop once its current tick
// finishes. Safe to call from any goroutine.
func (s *Server) Shutdown() {
	s.sched.Stop()
}

// Addr returns the address the listening socket is actually bound to.
// Only meaningful once Run has reached the point of binding — tests that
// start the server on port 0 call this to discover the assigned port.
func (s *Server) Addr() string {
	return s.addr
}

// listen binds the listening socket, retried through roko the same way
// internal/job/git.go retries a transient git fetch — a handful of
// short, non-blocking-process-wide attempts before giving up, run once
// at startup and never inside the scheduler's own loop (the scheduler
// never blocks; this retry deliberately runs before it starts).
func (s *Server) listen(ctx context.Context) error {
	retrier := roko.NewRetrier(
		roko.WithMaxAttempts(5),
		roko.WithStrategy(roko.Exponential(200*time.Millisecond, 0)),
		roko.WithJitter(),
	)
	fd, err := roko.DoFunc(ctx, retrier, func(r *roko.Retrier) (int, error) {
		fd, err := sock.Listen(s.host, s.port)
		if err != nil {
			s.logger.Debug("listen attempt failed, retrying", zap.Error(err), zap.String("retrier", r.String()))
		}
		return fd, err
	})
	if err != nil {
		return fmt.Errorf("server: listen on %s:%d: %w", s.host, s.port, err)
	}
	s.listenFD = fd
	if addr, err := sock.LocalAddr(fd); err == nil {
		s.addr = addr
	}
	return nil
}

// acceptStep is the listening socket's Read-side continuation: one
// non-blocking accept per readiness event, draining until the kernel
// reports no more pending connections so a burst of simultaneous
// connections doesn't wait for repeated readiness notifications.
//
// spec.md §7 splits accept failures into transient (logged, retried by
// re-yielding) and non-recoverable (terminate the server) — a failure
// that isn't one of the known load-related errnos means the listening
// socket itself is dead, so this stops the scheduler rather than
// spinning forever re-arming a dead fd.
func (s *Server) acceptStep() (scheduler.Want, scheduler.Task, bool) {
	for {
		fd, remoteAddr, err := sock.Accept(s.listenFD)
		if err != nil {
			if err == sock.ErrWouldBlock {
				return scheduler.Want{FD: s.listenFD, Dir: scheduler.Read}, scheduler.TaskFunc(s.acceptStep), false
			}
			if sock.IsTransientAcceptError(err) {
				s.logger.Warn("accept failed, retrying", zap.Error(err))
				return scheduler.Want{FD: s.listenFD, Dir: scheduler.Read}, scheduler.TaskFunc(s.acceptStep), false
			}
			s.logger.Error("accept failed, listening socket is dead", zap.Error(err))
			s.acceptErr = fmt.Errorf("accept: %w", err)
			s.sched.Stop()
			return scheduler.Want{}, nil, true
		}

		sess := session.New(
			logging.Named(s.logger, "session"),
			s.sched,
			s.clients,
			s.chats,
			s.sessions,
			fd,
			remoteAddr,
		)
		sess.Start()
	}
}
