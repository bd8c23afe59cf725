package analytics

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPMatcher reports whether an address belongs to a list of addresses and networks.
type IPMatcher struct {
	prefixes []netip.Prefix
}

// NewIPMatcher parses single addresses ("10.0.0.1") and CIDR networks ("10.0.0.0/8").
func NewIPMatcher(entries []string) (*IPMatcher, error) {
	m := &IPMatcher{}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid ignored network %q: %w", entry, err)
			}

			m.prefixes = append(m.prefixes, prefix.Masked())

			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid ignored address %q: %w", entry, err)
		}

		m.prefixes = append(m.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}

	return m, nil
}

// Contains reports whether ip matches one of the entries. Unparsable input never matches.
func (m *IPMatcher) Contains(ip string) bool {
	if m == nil || len(m.prefixes) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}

	addr = addr.Unmap()

	for _, prefix := range m.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}
