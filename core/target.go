package core

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var ErrInvalidTarget = errors.New("invalid target")

// PeerTarget is a host and port this process can send to or probe.
type PeerTarget struct {
	Address string
	Port    uint16
}

func NewPeerTarget(address string, port uint16) PeerTarget {
	return PeerTarget{Address: address, Port: port}
}

// ParseTarget accepts "host", "host:port" or "[v6]:port".
// defaultPort is used when s carries no port.
func ParseTarget(s string, defaultPort uint16) (PeerTarget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PeerTarget{}, fmt.Errorf("%w: empty address", ErrInvalidTarget)
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// No port, possibly a bare IPv6 address.
		host = strings.Trim(s, "[]")
		if defaultPort == 0 {
			return PeerTarget{}, fmt.Errorf("%w: %q has no port", ErrInvalidTarget, s)
		}
		return PeerTarget{Address: host, Port: defaultPort}, nil
	}

	if host == "" {
		return PeerTarget{}, fmt.Errorf("%w: %q has no host", ErrInvalidTarget, s)
	}

	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return PeerTarget{}, fmt.Errorf("%w: bad port in %q", ErrInvalidTarget, s)
	}

	return PeerTarget{Address: host, Port: uint16(p)}, nil
}

// ParseTargets parses every entry and drops duplicates, keeping the first occurrence.
func ParseTargets(list []string, defaultPort uint16) ([]PeerTarget, error) {
	seen := make(map[string]bool, len(list))
	targets := make([]PeerTarget, 0, len(list))

	for _, s := range list {
		t, err := ParseTarget(s, defaultPort)
		if err != nil {
			return nil, err
		}

		if seen[t.String()] {
			continue
		}
		seen[t.String()] = true

		targets = append(targets, t)
	}

	return targets, nil
}

func (t PeerTarget) String() string {
	return net.JoinHostPort(t.Address, strconv.Itoa(int(t.Port)))
}
