package kxnet

import (
	"fmt"
	"net"
	"sync"
)

// datagram is one in-flight packet inside a MockNetwork.
type datagram struct {
	data []byte
	from *net.UDPAddr
}

// MockNetwork is an in-process, deterministic stand-in for a real UDP
// network, used to drive the end-to-end scenario tests spec §8 describes
// ("simulate with a mock network delivering datagrams between in-process
// engines"). It is grounded on the channel-based packet-listener pattern
// the retrieval pack's gossip.go reference file uses for its own
// in-process packet transport.
type MockNetwork struct {
	mu    sync.Mutex
	conns map[string]*MockConn
	drop  map[[2]string]bool
}

// NewMockNetwork returns an empty mock network.
func NewMockNetwork() *MockNetwork {
	return &MockNetwork{
		conns: make(map[string]*MockConn),
		drop:  make(map[[2]string]bool),
	}
}

// NewConn registers and returns a new endpoint bound to addr.
func (n *MockNetwork) NewConn(addr *net.UDPAddr) *MockConn {
	c := &MockConn{
		addr:    addr,
		inbox:   make(chan datagram, 256),
		network: n,
	}
	n.mu.Lock()
	n.conns[addr.String()] = c
	n.mu.Unlock()
	return c
}

// DropFrom makes every future datagram sent from `from` to `to` vanish,
// simulating the one-directional packet loss the ACK-less-peer-eviction
// scenario (spec §8 scenario 4) depends on.
func (n *MockNetwork) DropFrom(from, to *net.UDPAddr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drop[[2]string{from.String(), to.String()}] = true
}

func (n *MockNetwork) shouldDrop(from, to *net.UDPAddr) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.drop[[2]string{from.String(), to.String()}]
}

func (n *MockNetwork) deliver(from, to *net.UDPAddr, data []byte) error {
	if n.shouldDrop(from, to) {
		return nil
	}
	n.mu.Lock()
	dest, ok := n.conns[to.String()]
	n.mu.Unlock()
	if !ok {
		// Real UDP silently drops datagrams to an address nobody is
		// listening on; do the same rather than erroring the sender.
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case dest.inbox <- datagram{data: cp, from: from}:
	default:
		return fmt.Errorf("kxnet: mock inbox full for %s", to)
	}
	return nil
}

// MockConn is one endpoint of a MockNetwork, implementing Conn.
type MockConn struct {
	addr    *net.UDPAddr
	inbox   chan datagram
	network *MockNetwork
	closed  bool
}

func (c *MockConn) LocalAddr() *net.UDPAddr { return c.addr }

func (c *MockConn) PacketConn() net.PacketConn { return nil }

func (c *MockConn) WriteTo(buf []byte, addr *net.UDPAddr) (int, error) {
	if c.closed {
		return 0, net.ErrClosed
	}
	if err := c.network.deliver(c.addr, addr, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (c *MockConn) ReadFrom(buf []byte) (int, *net.UDPAddr, error) {
	if c.closed {
		return 0, nil, net.ErrClosed
	}
	select {
	case dg := <-c.inbox:
		n := copy(buf, dg.data)
		return n, dg.from, nil
	default:
		return 0, nil, ErrWouldBlock
	}
}

func (c *MockConn) Close() error {
	c.closed = true
	return nil
}
