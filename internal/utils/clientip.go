package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Proxy headers consulted by ClientIP, most specific first.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// ParseAddr parses "ip", "ip:port" or "[v6]:port". IPv4-mapped IPv6
// addresses are unmapped so they match IPv4 rules.
func ParseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	a, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

// ClientIP returns the caller address as a string, or "" when it cannot be
// parsed. Proxy headers are only read when trustProxy is set, which must be
// the case only when the listener is reachable through a trusted tunnel.
func ClientIP(r *http.Request, trustProxy bool) string {
	if a, ok := ClientAddr(r, trustProxy); ok {
		return a.String()
	}
	return ""
}

// ClientAddr is ClientIP without the string round trip.
func ClientAddr(r *http.Request, trustProxy bool) (netip.Addr, bool) {
	if trustProxy {
		for _, h := range proxyHeaders {
			v := r.Header.Get(h)
			// left-most entry of X-Forwarded-For is the original client
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if a, ok := ParseAddr(v); ok {
				return a, true
			}
		}
	}
	return ParseAddr(r.RemoteAddr)
}

// AddrSet holds single addresses and prefixes. Entries that parse as
// neither are reported by NewAddrSet so callers can log them.
type AddrSet struct {
	prefixes []netip.Prefix
}

func NewAddrSet(entries []string) (*AddrSet, []string) {
	s := &AddrSet{}
	var invalid []string
	for _, raw := range entries {
		e := strings.TrimSpace(raw)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			s.prefixes = append(s.prefixes, p.Masked())
			continue
		}
		if a, ok := ParseAddr(e); ok {
			s.prefixes = append(s.prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		invalid = append(invalid, e)
	}
	return s, invalid
}

func (s *AddrSet) Len() int { return len(s.prefixes) }

func (s *AddrSet) Contains(a netip.Addr) bool {
	if !a.IsValid() {
		return false
	}
	a = a.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
