// Package policy ties the server registry, the recipient whitelists and the
// network ACLs of one configuration file together and manages their lifetime.
package policy

import (
	"milterpolicy/internal/backends/prefix"
	"milterpolicy/internal/ports"
	"milterpolicy/internal/registry"
	"milterpolicy/internal/types"
	"milterpolicy/internal/whitelist"
)

// Policy is built once by Load and is read-only afterwards. A reload builds a
// new Policy and swaps it in through a Holder.
type Policy struct {
	Source   string
	Settings types.Settings
	Pools    *registry.Registry
	Rcpts    *whitelist.Whitelist

	networks [types.NumACLs]ports.PrefixTrie
	released bool
}

// New returns an empty policy with default settings and one empty trie per
// ACL.
func New(warn ports.Warner) *Policy {
	p := &Policy{
		Settings: types.DefaultSettings(),
		Pools:    registry.New(warn),
		Rcpts:    whitelist.New(),
	}
	for i := range p.networks {
		p.networks[i] = prefix.New()
	}
	return p
}

// Network returns the trie behind acl, or nil for an unknown ACL.
func (p *Policy) Network(acl types.ACL) ports.PrefixTrie {
	if !acl.Valid() {
		return nil
	}
	return p.networks[acl]
}

// AllowedBy reports whether ip is listed in acl.
func (p *Policy) AllowedBy(acl types.ACL, ip string) bool {
	t := p.Network(acl)
	if t == nil {
		return false
	}
	return t.Lookup(ip)
}

func (p *Policy) RcptWhitelisted(scope types.Scope, addr string) bool {
	return p.Rcpts.IsWhitelisted(scope, addr)
}

// Release clears both recipient scopes and destroys every ACL trie. It is
// safe to call more than once; only the first call has an effect.
func (p *Policy) Release() {
	if p.released {
		return
	}
	p.released = true
	for s := 0; s < types.NumScopes; s++ {
		p.Rcpts.Clear(types.Scope(s))
	}
	for _, t := range p.networks {
		t.Destroy()
	}
}

func (p *Policy) Released() bool {
	return p.released
}
