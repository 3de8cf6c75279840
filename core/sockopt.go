package core

import "syscall"

// broadcastControl is a net.ListenConfig.Control that lets a UDP socket send
// to and share the discovery port with other local discovery sockets.
func broadcastControl(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		if opErr = setBroadcast(fd); opErr != nil {
			return
		}
		opErr = setReuseAddr(fd)
	})
	if err != nil {
		return err
	}
	return opErr
}
