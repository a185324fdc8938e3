package core

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reusePortControl marks the listening socket SO_REUSEPORT so every worker
// process can bind the same port and let the kernel balance accepts.
func reusePortControl(network, address string, rawConn syscall.RawConn) error {
	var sockErr error
	err := rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
