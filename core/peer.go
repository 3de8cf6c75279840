package core

import (
	"fmt"
	"net"
	"strconv"
)

// PeerAddress is a reachable file-transfer endpoint.
type PeerAddress struct {
	host string
	port int
}

func NewPeerAddress(host string, port int) (PeerAddress, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return PeerAddress{}, fmt.Errorf("invalid peer host %q", host)
	}
	if !validPort(port) {
		return PeerAddress{}, fmt.Errorf("invalid peer port %d", port)
	}
	return PeerAddress{host: ip.String(), port: port}, nil
}

// ParsePeerAddress accepts "host:port".
func ParsePeerAddress(s string) (PeerAddress, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return PeerAddress{}, err
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return PeerAddress{}, fmt.Errorf("invalid peer port %q", port)
	}

	return NewPeerAddress(host, p)
}

func (p PeerAddress) Host() string { return p.host }
func (p PeerAddress) Port() int    { return p.port }

func (p PeerAddress) String() string {
	return net.JoinHostPort(p.host, strconv.Itoa(p.port))
}

// ReceiverSet holds the receivers seen during one discovery call, in the
// order they were first seen.
type ReceiverSet struct {
	order []PeerAddress
	seen  map[PeerAddress]struct{}
}

func NewReceiverSet() *ReceiverSet {
	return &ReceiverSet{seen: make(map[PeerAddress]struct{})}
}

// Add reports whether p was not already present.
func (s *ReceiverSet) Add(p PeerAddress) bool {
	if _, ok := s.seen[p]; ok {
		return false
	}
	s.seen[p] = struct{}{}
	s.order = append(s.order, p)
	return true
}

func (s *ReceiverSet) Contains(p PeerAddress) bool {
	_, ok := s.seen[p]
	return ok
}

func (s *ReceiverSet) Len() int {
	return len(s.order)
}

func (s *ReceiverSet) Empty() bool {
	return len(s.order) == 0
}

// List returns a copy of the receivers in discovery order.
func (s *ReceiverSet) List() []PeerAddress {
	out := make([]PeerAddress, len(s.order))
	copy(out, s.order)
	return out
}
