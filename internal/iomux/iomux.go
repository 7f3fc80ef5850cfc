// Package iomux is the I/O multiplexer (C1): one readiness call over the
// registered descriptor set (IMU, GPS, stdin), short timeout, reporting
// per-descriptor readiness. This is the direct Go-native expression of
// spec §2/§5 — a single poll(2) call rather than one goroutine per
// descriptor, because spec §5 requires the loop stay "strictly
// single-threaded, cooperative. No background tasks."
//
// golang.org/x/sys/unix is already pulled in indirectly elsewhere in the
// module; this package promotes it to a direct dependency instead of
// hand-rolling descriptor polling on the standard library, which has no
// portable multi-fd readiness primitive.
package iomux

import (
	"time"

	"golang.org/x/sys/unix"
)

// Ready reports which registered descriptors had data available on the
// last Wait call.
type Ready struct {
	IMU, GPS, Stdin bool
}

// Mux waits on a fixed set of descriptors with one readiness call.
type Mux interface {
	// Wait blocks for at most timeout, returning which of the registered
	// descriptors are readable. It is the loop's only suspension point
	// (spec §5).
	Wait(timeout time.Duration) (Ready, error)
}

// Poll is the real Mux, backed by unix.Poll. A descriptor set to -1 is
// never registered (and is always reported not-ready) — used when GPS is
// absent or a gateway is a fake/replay source driven by the clock instead
// of a real fd.
type Poll struct {
	imuFd, gpsFd, stdinFd int
}

// New builds a Poll multiplexer. Pass -1 for any descriptor that should
// not be polled.
func New(imuFd, gpsFd, stdinFd int) *Poll {
	return &Poll{imuFd: imuFd, gpsFd: gpsFd, stdinFd: stdinFd}
}

// Wait implements Mux.
func (p *Poll) Wait(timeout time.Duration) (Ready, error) {
	var fds []unix.PollFd
	idx := map[int]*bool{}
	var ready Ready

	register := func(fd int, flag *bool) {
		if fd < 0 {
			return
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		idx[len(fds)-1] = flag
	}
	register(p.imuFd, &ready.IMU)
	register(p.gpsFd, &ready.GPS)
	register(p.stdinFd, &ready.Stdin)

	if len(fds) == 0 {
		return ready, nil
	}

	ms := int(timeout / time.Millisecond)
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return ready, nil
		}
		return ready, err
	}
	if n == 0 {
		return ready, nil
	}
	for i, fd := range fds {
		if fd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			*idx[i] = true
		}
	}
	return ready, nil
}

// Fake is a Mux for IMU_COMM_FAKE replay: the IMU has no real descriptor,
// so it sleeps until the next recorded sample is due (spec §5: "In the
// synthetic-IMU mode a sleep is inserted to match recorded timestamps;
// this is the only other suspension"). StdinFd, if set (>=0), is polled
// with a zero timeout after the sleep so operator input still works in
// replay mode.
type Fake struct {
	// Next is called once per Wait and returns the duration to sleep
	// before reporting the IMU descriptor ready.
	Next func() time.Duration

	StdinFd int
}

// Wait implements Mux.
func (f *Fake) Wait(_ time.Duration) (Ready, error) {
	if f.Next != nil {
		d := f.Next()
		if d > 0 {
			time.Sleep(d)
		}
	}
	ready := Ready{IMU: true}
	if f.StdinFd >= 0 {
		fds := []unix.PollFd{{Fd: int32(f.StdinFd), Events: unix.POLLIN}}
		if n, err := unix.Poll(fds, 0); err == nil && n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready.Stdin = true
		}
	}
	return ready, nil
}
