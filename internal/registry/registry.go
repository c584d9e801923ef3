// Package registry holds the capacity-bounded pools of backend servers
// (cache, antivirus and scan-scoring) built from configuration.
package registry

import (
	"milterpolicy/internal/ports"
	"milterpolicy/internal/types"
	"strings"
)

// Pool is an ordered, capacity-bounded list of endpoints for one role.
// Insertion order is the order of preference on failover.
type Pool struct {
	role     types.Role
	capacity int
	entries  []types.Endpoint
}

func (p *Pool) Role() types.Role { return p.role }
func (p *Pool) Len() int         { return len(p.entries) }
func (p *Pool) Cap() int         { return p.capacity }

// Endpoints returns a copy of the pool entries in insertion order.
func (p *Pool) Endpoints() []types.Endpoint {
	out := make([]types.Endpoint, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Pool) add(ep types.Endpoint) {
	p.entries = append(p.entries, ep)
}

func (p *Pool) full() bool {
	return len(p.entries) >= p.capacity
}

// Registry maps every role to its pool.
type Registry struct {
	pools [types.NumRoles]Pool
	warn  ports.Warner
}

// New creates a registry with an empty pool per role. warn receives
// non-fatal diagnostics; it may be nil.
func New(warn ports.Warner) *Registry {
	r := &Registry{warn: warn}
	for _, role := range types.Roles() {
		r.pools[role] = Pool{role: role, capacity: role.Capacity()}
	}
	return r
}

// Pool returns the pool for role, or nil for an unknown role.
func (r *Registry) Pool(role types.Role) *Pool {
	if !role.Valid() {
		return nil
	}
	return &r.pools[role]
}

// AddEndpoint parses spec as host[:port[:priority]] and appends it to the
// pool of role. Spamd roles additionally accept an "r:" protocol prefix.
// The pool is left untouched on any error.
func (r *Registry) AddEndpoint(role types.Role, spec string, defaultPort uint16) error {
	pool := r.Pool(role)
	if pool == nil {
		return types.Err(types.ErrInvalidRole, nil, "%s", role)
	}
	if pool.full() {
		return types.Err(types.ErrPoolFull, nil, "maximum number of %s servers is reached %d", role, pool.capacity)
	}
	if role.IsSpamd() {
		spec = strings.TrimPrefix(spec, protoTag)
	}
	ep, err := parseSpec(spec, defaultPort)
	if err != nil {
		return err
	}
	pool.add(ep)
	return nil
}

// AddCacheServer adds spec to a cache pool using the memcached default port.
// Mirrored servers are no longer supported: a non-empty mirror is reported
// through the warner and dropped, the primary is still added.
func (r *Registry) AddCacheServer(role types.Role, spec, mirror string) error {
	if !role.IsCache() {
		return types.Err(types.ErrInvalidRole, nil, "%s is not a cache role", role)
	}
	if err := r.AddEndpoint(role, spec, types.DefaultCachePort); err != nil {
		return err
	}
	if mirror != "" && r.warn != nil {
		r.warn.Warnf("mirrored servers are no longer supported; server %s will be ignored", mirror)
	}
	return nil
}

// Len is the total number of endpoints across every pool.
func (r *Registry) Len() int {
	n := 0
	for i := range r.pools {
		n += r.pools[i].Len()
	}
	return n
}
