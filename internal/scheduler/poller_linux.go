//go:build linux

package scheduler

import (
	"golang.org/x/sys/unix"
)

// readyEvent is one fd reported ready by the poller, along with the
// direction that fired.
type readyEvent struct {
	fd    int
	write bool
}

// poller is the OS readiness primitive the scheduler multiplexes over.
// The epoll implementation below is the only one this rewrite ships —
// spec.md §4.3 leaves the choice of select/poll/epoll/kqueue to the
// implementation, and epoll is the natural pick on the platform this
// module targets.
type poller interface {
	add(fd int, write bool) error
	modify(fd int, write bool) error
	remove(fd int) error
	wait() ([]readyEvent, error)
	close() error
}

type epollPoller struct {
	epfd int
}

func newPoller() (poller, int, int, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, 0, 0, err
	}
	fds, err := pipe2CloExecNonblock()
	if err != nil {
		_ = unix.Close(epfd)
		return nil, 0, 0, err
	}
	return &epollPoller{epfd: epfd}, fds[0], fds[1], nil
}

func pipe2CloExecNonblock() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return fds, err
	}
	return fds, nil
}

func eventsFor(write bool) uint32 {
	if write {
		return unix.EPOLLOUT
	}
	return unix.EPOLLIN
}

func (p *epollPoller) add(fd int, write bool) error {
	ev := unix.EpollEvent{Events: eventsFor(write), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, write bool) error {
	ev := unix.EpollEvent{Events: eventsFor(write), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (p *epollPoller) wait() ([]readyEvent, error) {
	var raw [128]unix.EpollEvent
	for {
		n, err := unix.EpollWait(p.epfd, raw[:], -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		out := make([]readyEvent, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, readyEvent{
				fd:    int(raw[i].Fd),
				write: raw[i].Events&unix.EPOLLOUT != 0,
			})
		}
		return out, nil
	}
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}

func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

func closeFD(fd int) error {
	return unix.Close(fd)
}
