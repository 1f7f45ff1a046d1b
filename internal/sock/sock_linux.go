//go:build linux

// Package sock wraps the handful of raw, non-blocking socket syscalls
// the scheduler drives: listen, accept, recv, send, close. Everything
// here is non-blocking by construction — a caller hits ErrWouldBlock
// instead of stalling the one OS thread the scheduler runs on, matching
// original_source's use of a raw socket.socket (never net.Conn, whose
// blocking-looking API hides the Go runtime's own netpoller underneath
// and would reintroduce exactly the hidden concurrency spec.md §5 rules
// out).
package sock

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned when a non-blocking syscall has no data or
// buffer space ready yet — not a failure, the normal "not ready" signal
// that the caller should turn into a Want and suspend on.
var ErrWouldBlock = errors.New("sock: would block")

// ErrClosed indicates an orderly remote close (a zero-length read).
var ErrClosed = errors.New("sock: connection closed")

// Listen resolves host:port, binds a non-blocking IPv4 TCP socket with
// SO_REUSEADDR set (spec.md §6), and starts listening with a backlog of
// 128 — "a single listen backlog is sufficient".
func Listen(host string, port int) (fd int, err error) {
	addr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return 0, fmt.Errorf("sock: resolve %s: %w", host, err)
	}

	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("sock: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("sock: setsockopt SO_REUSEADDR: %w", err)
	}

	var ip4 [4]byte
	copy(ip4[:], addr.IP.To4())
	sa := &unix.SockaddrInet4{Port: port, Addr: ip4}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("sock: bind: %w", err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("sock: listen: %w", err)
	}
	return fd, nil
}

// Accept attempts to accept one pending connection from a listening
// socket. ErrWouldBlock means there is nothing to accept right now.
func Accept(listenFD int) (fd int, remoteAddr string, err error) {
	nfd, sa, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if isWouldBlock(err) {
			return 0, "", ErrWouldBlock
		}
		return 0, "", err
	}
	return nfd, sockaddrString(sa), nil
}

// Read performs one non-blocking recv. ErrWouldBlock means no data is
// available yet; ErrClosed means the peer closed the connection in an
// orderly fashion (a zero-byte read, per spec.md §4.2).
func Read(fd int, buf []byte) (n int, err error) {
	n, err = unix.Read(fd, buf)
	if err != nil {
		if isWouldBlock(err) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, ErrClosed
	}
	return n, nil
}

// Write performs one non-blocking send. ErrWouldBlock means the socket
// buffer is full; the caller should wait for write-readiness and retry.
func Write(fd int, buf []byte) (n int, err error) {
	n, err = unix.Write(fd, buf)
	if err != nil {
		if isWouldBlock(err) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

// LocalAddr reports the address a bound socket is actually listening on,
// needed when Listen was asked for port 0 and the kernel picked one —
// tests exercise the server this way to avoid colliding on a fixed port.
func LocalAddr(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", fmt.Errorf("sock: getsockname: %w", err)
	}
	return sockaddrString(sa), nil
}

// Close releases the fd. Safe to call more than once.
func Close(fd int) error {
	err := unix.Close(fd)
	if err == unix.EBADF {
		return nil
	}
	return err
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// IsTransientAcceptError reports whether an Accept failure is a
// recoverable, load-related condition — the process file-descriptor
// table is full, or a peer reset the connection before accept finished
// — rather than the listening socket itself having died. spec.md §7:
// "Accept failures ... transient ... logged and retried" vs.
// "non-recoverable accept errors terminate the server". Modeled on the
// errno set net/http's Server.Serve treats as worth a retry delay
// (EMFILE/ENFILE) plus ECONNABORTED, which accept(2) can return for a
// connection that was already reset by its peer.
func IsTransientAcceptError(err error) bool {
	return errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE) ||
		errors.Is(err, unix.ECONNABORTED) ||
		errors.Is(err, unix.EINTR)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(a.Addr[:])
		return fmt.Sprintf("%s:%d", ip.String(), a.Port)
	default:
		return "unknown"
	}
}
