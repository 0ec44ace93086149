package engine

import (
	"net/netip"
	"strings"
	"unicode/utf8"
)

// addrClass is the three-way classification of a leading address token.
type addrClass int

const (
	classHost addrClass = iota // anything that is not a textual IP address
	classIPv4
	classIPv6
)

// classifyToken reports whether the token parses as an IPv4 literal, an
// IPv6 literal, or neither. Tokens that are not valid UTF-8 are decoded
// lossily first (broken sequences become U+FFFD), so classification never
// fails: garbage bytes simply land in classHost. Dotted-quad-in-IPv6 forms
// like "::ffff:8.8.8.8" and zoned literals like "fe80::1%eth0" count as
// IPv6.
func classifyToken(token []byte) addrClass {
	var s string
	if utf8.Valid(token) {
		s = string(token)
	} else {
		s = strings.ToValidUTF8(string(token), "�")
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return classHost
	}
	if addr.Is4() {
		return classIPv4
	}
	return classIPv6
}
