// Package extnetwork provides IP address and CIDR functions. Invalid
// addresses and prefixes yield null rather than an error.
package extnetwork

import (
	"encoding/binary"
	"net/netip"

	"github.com/sandrolain/celfx/pkg/functions"
)

// All returns all network function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		IPToInt(),
		IntToIP(),
		CIDRContains(),
		CIDRNetwork(),
		CIDRBroadcast(),
		CIDRPrefix(),
		IsPrivateIP(),
		IsLoopbackIP(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryNetwork,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

func prefix(s string) (netip.Prefix, bool) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return p, false
	}
	return p, true
}

// IPToInt returns the descriptor for ip_to_int(ip).
func IPToInt() functions.Descriptor {
	return leaf("ip_to_int", "<s:n>", "IPv4 address as a 32-bit number", `ip_to_int("10.0.0.1") -> 167772161`,
		func(args ...any) (any, error) {
			a, err := netip.ParseAddr(args[0].(string))
			if err != nil || !a.Is4() {
				return nil, nil
			}
			b := a.As4()
			return float64(binary.BigEndian.Uint32(b[:])), nil
		})
}

// IntToIP returns the descriptor for int_to_ip(n).
func IntToIP() functions.Descriptor {
	return leaf("int_to_ip", "<n:s>", "IPv4 address for a 32-bit number", `int_to_ip(167772161) -> "10.0.0.1"`,
		func(args ...any) (any, error) {
			n := args[0].(float64)
			if n < 0 || n > 0xFFFFFFFF || n != float64(uint32(n)) {
				return nil, nil
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(n))
			return netip.AddrFrom4(b).String(), nil
		})
}

// CIDRContains returns the descriptor for cidr_contains(cidr, ip).
func CIDRContains() functions.Descriptor {
	return leaf("cidr_contains", "<s-s:b>", "Whether the address lies in the CIDR block",
		`cidr_contains("10.0.0.0/8", "10.1.2.3") -> true`,
		func(args ...any) (any, error) {
			p, ok := prefix(args[0].(string))
			if !ok {
				return nil, nil
			}
			a, err := netip.ParseAddr(args[1].(string))
			if err != nil {
				return nil, nil
			}
			return p.Contains(a), nil
		})
}

// CIDRNetwork returns the descriptor for cidr_network(cidr).
func CIDRNetwork() functions.Descriptor {
	return leaf("cidr_network", "<s:s>", "Network address of a CIDR block", `cidr_network("10.1.2.3/8") -> "10.0.0.0"`,
		func(args ...any) (any, error) {
			p, ok := prefix(args[0].(string))
			if !ok {
				return nil, nil
			}
			return p.Masked().Addr().String(), nil
		})
}

// CIDRBroadcast returns the descriptor for cidr_broadcast(cidr).
// Only IPv4 blocks have a broadcast address.
func CIDRBroadcast() functions.Descriptor {
	return leaf("cidr_broadcast", "<s:s>", "Broadcast address of an IPv4 CIDR block",
		`cidr_broadcast("192.168.1.0/24") -> "192.168.1.255"`,
		func(args ...any) (any, error) {
			p, ok := prefix(args[0].(string))
			if !ok || !p.Addr().Is4() {
				return nil, nil
			}
			b := p.Masked().Addr().As4()
			n := binary.BigEndian.Uint32(b[:]) | (1<<(32-p.Bits()) - 1)
			binary.BigEndian.PutUint32(b[:], n)
			return netip.AddrFrom4(b).String(), nil
		})
}

// CIDRPrefix returns the descriptor for cidr_prefix(cidr).
func CIDRPrefix() functions.Descriptor {
	return leaf("cidr_prefix", "<s:n>", "Prefix length of a CIDR block", `cidr_prefix("10.0.0.0/8") -> 8`,
		func(args ...any) (any, error) {
			p, ok := prefix(args[0].(string))
			if !ok {
				return nil, nil
			}
			return float64(p.Bits()), nil
		})
}

// IsPrivateIP returns the descriptor for is_private_ip(ip).
func IsPrivateIP() functions.Descriptor {
	return leaf("is_private_ip", "<s:b>", "Whether the address is in an RFC 1918 or RFC 4193 range",
		`is_private_ip("192.168.1.1") -> true`,
		func(args ...any) (any, error) {
			a, err := netip.ParseAddr(args[0].(string))
			if err != nil {
				return nil, nil
			}
			return a.IsPrivate(), nil
		})
}

// IsLoopbackIP returns the descriptor for is_loopback_ip(ip).
func IsLoopbackIP() functions.Descriptor {
	return leaf("is_loopback_ip", "<s:b>", "Whether the address is a loopback address",
		`is_loopback_ip("127.0.0.1") -> true`,
		func(args ...any) (any, error) {
			a, err := netip.ParseAddr(args[0].(string))
			if err != nil {
				return nil, nil
			}
			return a.IsLoopback(), nil
		})
}
