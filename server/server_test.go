//go:build linux

package server_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pankaj/chat-relay/internal/chattest"
	"github.com/pankaj/chat-relay/server"
)

// startServer boots a Server on an OS-assigned loopback port and returns
// its address, tearing the process down at test end. Mirrors
// client/client_test.go + integration_test.go's startTestServer in the
// teacher repo, adapted to this rewrite's context.Context-driven Run.
func startServer(t *testing.T) string {
	t.Helper()
	srv, err := server.New(zaptest.NewLogger(t), "localhost", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var addr string
	require.Eventually(t, func() bool {
		addr = srv.Addr()
		return addr != ""
	}, 2*time.Second, time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down")
		}
	})
	return addr
}

const readTimeout = 2 * time.Second

func connectAndRegister(t *testing.T, addr, name string) *chattest.Client {
	t.Helper()
	c, err := chattest.Dial(addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	greeting, err := c.Register(name, readTimeout)
	require.NoError(t, err)
	require.Equal(t, "Hi! Write your username.", greeting)

	reply, err := c.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Contains(t, reply, "Available commands:")

	// The help text spans one line per command, ending with /help's own
	// line; consume the rest so later reads see only post-registration
	// traffic.
	for !strings.HasPrefix(reply, "/help") {
		reply, err = c.ReadLine(readTimeout)
		require.NoError(t, err)
	}
	return c
}

// S1 — Registration.
func TestScenarioRegistration(t *testing.T) {
	addr := startServer(t)
	connectAndRegister(t, addr, "alice")
}

// S2 — Duplicate name rejection.
func TestScenarioDuplicateNameRejected(t *testing.T) {
	addr := startServer(t)
	connectAndRegister(t, addr, "alice")

	b, err := chattest.Dial(addr)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	_, err = b.Register("alice", readTimeout)
	require.NoError(t, err)

	reply, err := b.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "Username is already in use, try another one:", reply)

	require.NoError(t, b.Send("bob"))
	reply, err = b.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Contains(t, reply, "Available commands:")
}

// S3 — Successful dialog: connect, approve, exchange chat text.
func TestScenarioSuccessfulDialog(t *testing.T) {
	addr := startServer(t)
	alice := connectAndRegister(t, addr, "alice")
	bob := connectAndRegister(t, addr, "bob")

	require.NoError(t, alice.Send("/connect bob"))
	reply, err := bob.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "alice wants to start a chat with you.", reply)

	require.NoError(t, bob.Send("/approve alice"))

	reply, err = alice.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "You started a chat with bob.", reply)

	reply, err = bob.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "You started a chat with alice.", reply)

	require.NoError(t, alice.Send("hello"))
	reply, err = bob.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "alice: hello", reply)
}

// S4 — Decline.
func TestScenarioDecline(t *testing.T) {
	addr := startServer(t)
	alice := connectAndRegister(t, addr, "alice")
	bob := connectAndRegister(t, addr, "bob")

	require.NoError(t, alice.Send("/connect bob"))
	_, err := bob.ReadLine(readTimeout)
	require.NoError(t, err)

	require.NoError(t, bob.Send("/decline alice"))

	reply, err := bob.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "You declined a chat request from alice.", reply)

	reply, err = alice.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "bob declined your chat request.", reply)
}

// S5 — Double-connect rejected.
func TestScenarioDoubleConnectRejected(t *testing.T) {
	addr := startServer(t)
	alice := connectAndRegister(t, addr, "alice")
	bob := connectAndRegister(t, addr, "bob")
	_ = connectAndRegister(t, addr, "carol")

	require.NoError(t, alice.Send("/connect bob"))
	_, err := bob.ReadLine(readTimeout)
	require.NoError(t, err)
	require.NoError(t, bob.Send("/approve alice"))
	_, err = alice.ReadLine(readTimeout)
	require.NoError(t, err)
	_, err = bob.ReadLine(readTimeout)
	require.NoError(t, err)

	require.NoError(t, alice.Send("/connect carol"))
	reply, err := alice.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "You already in chat with bob.", reply)
}

// S6 — Disconnect cleanup: A drops while active with B and pending from C.
func TestScenarioDisconnectCleanup(t *testing.T) {
	addr := startServer(t)
	alice := connectAndRegister(t, addr, "alice")
	bob := connectAndRegister(t, addr, "bob")
	carol := connectAndRegister(t, addr, "carol")

	require.NoError(t, alice.Send("/connect bob"))
	_, err := bob.ReadLine(readTimeout)
	require.NoError(t, err)
	require.NoError(t, bob.Send("/approve alice"))
	_, err = alice.ReadLine(readTimeout)
	require.NoError(t, err)
	_, err = bob.ReadLine(readTimeout)
	require.NoError(t, err)

	require.NoError(t, carol.Send("/connect alice"))
	_, err = alice.ReadLine(readTimeout)
	require.NoError(t, err)

	require.NoError(t, alice.Close())

	// Give the scheduler a tick to notice the drop and clean up.
	require.Eventually(t, func() bool {
		if err := bob.Send("ping"); err != nil {
			return false
		}
		reply, err := bob.ReadLine(200 * time.Millisecond)
		if err != nil {
			return false
		}
		return reply == "You are not consistent with any chat."
	}, 2*time.Second, 50*time.Millisecond)

	require.NoError(t, carol.Send("/requests"))
	reply, err := carol.ReadLine(readTimeout)
	require.NoError(t, err)
	require.Equal(t, "You not have chat requests", reply)
}
