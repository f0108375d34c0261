// Package mpeer contains the peer list sent by a bootstrap server.
package mpeer

import (
	"fmt"
	"net/netip"

	"github.com/lareeq/massa/mcodec"
)

// Address family bytes preceding each encoded address.
// Not using iota here, to avoid possibility of values changing across the wire.
const (
	familyIPv4 byte = 4
	familyIPv6 byte = 6
)

// BootstrapPeers is the list of peer IP addresses
// a bootstrap server advertises to a joining node.
//
// The compact encoding is a varint count, bounded by
// [mcodec.SerializationContext.MaxPeerListLength],
// followed by each address as a family byte (4 or 6)
// and the 4 or 16 raw address bytes.
//
// An empty list is valid.
// Whether the addresses are useful is for the peer database to decide.
type BootstrapPeers struct {
	Addrs []netip.Addr
}

var _ mcodec.Codec = (*BootstrapPeers)(nil)

// AppendCompact implements [mcodec.Encoder].
//
// Invalid (zero) addresses, addresses with zones,
// and IPv4-mapped IPv6 addresses are rejected,
// so every encodable address has exactly one family byte
// and decodes to the same value.
func (p BootstrapPeers) AppendCompact(dst []byte, sc *mcodec.SerializationContext) ([]byte, error) {
	if err := mcodec.CheckLimit("peer list length", len(p.Addrs), sc.MaxPeerListLength); err != nil {
		return nil, err
	}

	dst = mcodec.AppendUvarint(dst, uint64(len(p.Addrs)))
	for i, a := range p.Addrs {
		if !a.IsValid() {
			return nil, fmt.Errorf("peer %d: invalid address", i)
		}
		if a.Zone() != "" {
			return nil, fmt.Errorf("peer %d: address %s has a zone", i, a)
		}

		if a.Is4In6() {
			return nil, fmt.Errorf("peer %d: IPv4-mapped address %s must be unmapped", i, a)
		}

		if a.Is4() {
			b := a.As4()
			dst = append(dst, familyIPv4)
			dst = append(dst, b[:]...)
		} else {
			b := a.As16()
			dst = append(dst, familyIPv6)
			dst = append(dst, b[:]...)
		}
	}

	return dst, nil
}

// DecodeCompact implements [mcodec.Decoder].
func (p *BootstrapPeers) DecodeCompact(src []byte, sc *mcodec.SerializationContext) (int, error) {
	c := mcodec.NewCursor(src, sc)

	n, err := c.Length("peer list length", sc.MaxPeerListLength)
	if err != nil {
		return 0, err
	}

	var addrs []netip.Addr
	if n > 0 {
		addrs = make([]netip.Addr, n)
	}

	for i := range addrs {
		family, err := c.Byte("peer address family")
		if err != nil {
			return 0, err
		}

		switch family {
		case familyIPv4:
			var b [4]byte
			if err := c.ReadInto("peer IPv4 address", b[:]); err != nil {
				return 0, err
			}
			addrs[i] = netip.AddrFrom4(b)

		case familyIPv6:
			var b [16]byte
			if err := c.ReadInto("peer IPv6 address", b[:]); err != nil {
				return 0, err
			}
			a := netip.AddrFrom16(b)
			if a.Is4In6() {
				return 0, fmt.Errorf("peer %d: IPv4-mapped address %s encoded as IPv6", i, a)
			}
			addrs[i] = a

		default:
			return 0, fmt.Errorf("peer %d: unknown address family byte %d", i, family)
		}
	}

	p.Addrs = addrs
	return c.Offset(), nil
}
