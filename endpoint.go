package gotftp

import (
	"net"
	"time"
)

// endpoint is a thin wrapper over a UDP socket: bind, send to peer, receive
// with timeout, toggle the receive deadline. It is the only place that
// touches net.PacketConn directly so the engine above it never has to
// reason about sockets.
type endpoint struct {
	conn net.PacketConn
}

// bindEndpoint binds INADDR_ANY on addr (":69" for the well-known TFTP
// port, ":0" for an ephemeral client-side socket).
func bindEndpoint(addr string) (*endpoint, error) {
	conn, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return nil, err
	}
	return &endpoint{conn: conn}, nil
}

func (e *endpoint) Close() error {
	return e.conn.Close()
}

func (e *endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// send blocks until the datagram is handed to the OS; it returns the byte
// count or the I/O failure.
func (e *endpoint) send(data []byte, peer net.Addr) (int, error) {
	return e.conn.WriteTo(data, peer)
}

// recv blocks up to timeout for one datagram. timeout == 0 disables the
// deadline (blocks forever). The returned error satisfies net.Error with
// Timeout() == true when the deadline elapsed first.
func (e *endpoint) recv(buf []byte, timeout time.Duration) (int, net.Addr, error) {
	if timeout != 0 {
		e.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		e.conn.SetReadDeadline(time.Time{})
	}
	return e.conn.ReadFrom(buf)
}

// setRecvTimeout sets the socket's read deadline to timeout from now; zero
// clears it. recv replaces the deadline on every call with its own timeout
// argument.
func (e *endpoint) setRecvTimeout(timeout time.Duration) {
	if timeout != 0 {
		e.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		e.conn.SetReadDeadline(time.Time{})
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
