// Package prefix is the IP prefix set behind the network ACLs.
package prefix

import (
	"net/netip"
	"strings"

	"github.com/gaissmai/bart"
)

// Trie implements ports.PrefixTrie on a bart routing table.
type Trie struct {
	tbl *bart.Table[struct{}]
}

func New() *Trie {
	return &Trie{tbl: new(bart.Table[struct{}])}
}

// Insert adds every address or CIDR found in spec. Items may be separated by
// commas, semicolons or whitespace. Nothing is inserted unless every item
// parses.
func (t *Trie) Insert(spec string) bool {
	if t == nil || t.tbl == nil {
		return false
	}
	pfxs, ok := ParseList(spec)
	if !ok {
		return false
	}
	for _, p := range pfxs {
		t.tbl.Insert(p, struct{}{})
	}
	return true
}

// Lookup reports whether ip is covered by any stored prefix.
func (t *Trie) Lookup(ip string) bool {
	if t == nil || t.tbl == nil {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	return t.tbl.Contains(addr.Unmap())
}

func (t *Trie) Len() int {
	if t == nil || t.tbl == nil {
		return 0
	}
	return t.tbl.Size()
}

// Prefixes lists the stored prefixes, IPv4 first.
func (t *Trie) Prefixes() []netip.Prefix {
	if t == nil || t.tbl == nil {
		return nil
	}
	out := make([]netip.Prefix, 0, t.tbl.Size())
	for p := range t.tbl.AllSorted() {
		out = append(out, p)
	}
	return out
}

// Destroy drops the table. A destroyed or nil trie matches nothing and
// rejects further inserts.
func (t *Trie) Destroy() {
	if t != nil {
		t.tbl = nil
	}
}

// ParseList splits spec into masked prefixes. A bare address becomes a host
// route. It returns false if spec is empty or any item fails to parse.
func ParseList(spec string) ([]netip.Prefix, bool) {
	items := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(items) == 0 {
		return nil, false
	}
	out := make([]netip.Prefix, 0, len(items))
	for _, item := range items {
		p, ok := parseOne(item)
		if !ok {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

func parseOne(item string) (netip.Prefix, bool) {
	if strings.Contains(item, "/") {
		p, err := netip.ParsePrefix(item)
		if err != nil {
			return netip.Prefix{}, false
		}
		if p.Addr().Is4In6() {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
			if !p.IsValid() {
				return netip.Prefix{}, false
			}
		}
		return p.Masked(), true
	}
	addr, err := netip.ParseAddr(item)
	if err != nil || addr.Zone() != "" {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), true
}
