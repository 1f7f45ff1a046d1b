// Package chattest is a small raw-socket client harness for exercising
// a running server from tests — the test-only descendant of
// client/client.go's ChatClient, stripped of its REPL and adapted to
// the newline-framed command protocol instead of the old pipe-delimited
// JOIN/SEND/LEAVE one.
package chattest

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// Client is a bare TCP connection to a chat relay server, read through
// a buffered line reader. It does no protocol interpretation of its
// own — tests assert on the exact reply text.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to addr with a short timeout, matching the
// connection-establishment deadline client/client.go used.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("chattest: dial %s: %w", addr, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Send writes one line, appending the newline terminator the wire
// protocol expects.
func (c *Client) Send(line string) error {
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	return err
}

// ReadLine blocks for at most timeout waiting for the next complete
// line from the server, with the trailing newline stripped.
func (c *Client) ReadLine(timeout time.Duration) (string, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	defer c.conn.SetReadDeadline(time.Time{})

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\n"), nil
}

// Register performs the greeting/username handshake: reads the
// greeting line, sends name, and returns the greeting. The server's
// reply to the name (a duplicate-username prompt or the help text) is
// left unread for the caller's next ReadLine.
func (c *Client) Register(name string, timeout time.Duration) (greeting string, err error) {
	greeting, err = c.ReadLine(timeout)
	if err != nil {
		return "", err
	}
	if err := c.Send(name); err != nil {
		return "", err
	}
	return greeting, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
