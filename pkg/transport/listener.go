package transport

import (
	"context"
	"fmt"
	"net"
)

// maxDatagram is larger than any realistic path MTU; oversized reads are
// simply truncated by ReadFromUDP, never a buffer overrun.
const maxDatagram = 65535

// PacketHandler processes one received datagram's payload.
type PacketHandler func(data []byte)

// Listener joins a UDP multicast group and delivers received datagrams to
// a handler until its context is cancelled.
type Listener struct {
	endpoint Endpoint
	conn     *net.UDPConn
}

// Join opens and joins the multicast group named by endpoint.
func Join(endpoint Endpoint) (*Listener, error) {
	group, err := endpoint.ResolveGroup()
	if err != nil {
		return nil, fmt.Errorf("transport: resolve group: %w", err)
	}

	var iface *net.Interface
	if endpoint.Interface != "" {
		iface, err = net.InterfaceByName(endpoint.Interface)
		if err != nil {
			return nil, fmt.Errorf("transport: interface %q: %w", endpoint.Interface, err)
		}
	}

	conn, err := net.ListenMulticastUDP("udp", iface, group)
	if err != nil {
		return nil, fmt.Errorf("transport: join %s: %w", group, err)
	}
	conn.SetReadBuffer(4 << 20)

	return &Listener{endpoint: endpoint, conn: conn}, nil
}

// Close leaves the group and releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// Serve reads datagrams until ctx is cancelled or the socket errors, calling
// handler for each one. It blocks; callers typically run it in a goroutine.
func (l *Listener) Serve(ctx context.Context, handler PacketHandler) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		l.conn.Close()
		close(done)
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return nil
			default:
				return fmt.Errorf("transport: read: %w", err)
			}
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		handler(payload)
	}
}
