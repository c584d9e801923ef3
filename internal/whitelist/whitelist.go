// Package whitelist implements the recipient whitelists consulted once per
// SMTP transaction.
//
// Entries are classified when inserted:
//
//	@example.com       domain: any recipient at example.com
//	alice@example.com  user at domain: exactly that address
//	postmaster         user: that local part, with or without a domain
//
// Keys are lower-cased, so matching is case-insensitive. There is one map per
// scope; re-inserting a key replaces its classification.
package whitelist

import (
	"milterpolicy/internal/types"
	"strings"
)

type Whitelist struct {
	scopes [types.NumScopes]map[string]types.Kind
}

func New() *Whitelist {
	w := &Whitelist{}
	for i := range w.scopes {
		w.scopes[i] = make(map[string]types.Kind)
	}
	return w
}

// Classify returns the key and kind a raw entry is stored under.
func Classify(raw string) (string, types.Kind) {
	switch {
	case strings.HasPrefix(raw, "@"):
		return strings.ToLower(raw[1:]), types.KindDomain
	case strings.Contains(raw, "@"):
		return strings.ToLower(raw), types.KindUserDomain
	default:
		return strings.ToLower(raw), types.KindUser
	}
}

// Insert classifies raw and stores it in scope. It never fails; unknown
// scopes are ignored.
func (w *Whitelist) Insert(scope types.Scope, raw string) {
	m := w.scope(scope)
	if m == nil {
		return
	}
	key, kind := Classify(raw)
	m[key] = kind
}

// IsWhitelisted reports whether the recipient addr, optionally wrapped in
// angle brackets, matches scope. Precedence: exact user@domain, bare user
// when addr has no domain, local part, domain.
func (w *Whitelist) IsWhitelisted(scope types.Scope, addr string) bool {
	m := w.scope(scope)
	if m == nil {
		return false
	}

	addr = strings.TrimPrefix(addr, "<")
	if i := strings.IndexByte(addr, '>'); i >= 0 {
		addr = addr[:i]
	}
	if len(addr) > types.MaxAddrLen {
		addr = addr[:types.MaxAddrLen]
	}
	if addr == "" {
		return false
	}
	candidate := strings.ToLower(addr)

	kind, found := m[candidate]
	if found && kind == types.KindUserDomain {
		return true
	}

	local, domain, hasDomain := strings.Cut(candidate, "@")
	if !hasDomain && found && kind == types.KindUser {
		return true
	}

	if kind, ok := m[local]; ok && kind == types.KindUser {
		return true
	}
	if domain != "" {
		if kind, ok := m[domain]; ok && kind == types.KindDomain {
			return true
		}
	}
	return false
}

// Clear drops every entry of scope.
func (w *Whitelist) Clear(scope types.Scope) {
	if w.scope(scope) == nil {
		return
	}
	w.scopes[scope] = make(map[string]types.Kind)
}

func (w *Whitelist) Len(scope types.Scope) int {
	return len(w.scope(scope))
}

// Lookup returns the classification stored for key in scope.
func (w *Whitelist) Lookup(scope types.Scope, key string) (types.Kind, bool) {
	kind, ok := w.scope(scope)[strings.ToLower(key)]
	return kind, ok
}

func (w *Whitelist) scope(scope types.Scope) map[string]types.Kind {
	if scope < 0 || int(scope) >= types.NumScopes {
		return nil
	}
	return w.scopes[scope]
}
