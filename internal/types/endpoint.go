package types

import (
	"net"
	"strconv"
)

// Role is the functional category of a backend pool.
type Role int

const (
	CacheGrey Role = iota
	CacheWhite
	CacheLimits
	CacheID
	CacheCopy
	CacheSpam
	ClamAV
	SpamdPrimary
	SpamdExtra

	NumRoles = int(SpamdExtra) + 1
)

const (
	MaxCacheServers  = 48
	MaxClamAVServers = 48
	MaxSpamdServers  = 128

	DefaultCachePort  uint16 = 11211
	DefaultClamAVPort uint16 = 3310
	DefaultSpamdPort  uint16 = 11333
)

var roleNames = [NumRoles]string{
	CacheGrey:    "cache_grey",
	CacheWhite:   "cache_white",
	CacheLimits:  "cache_limits",
	CacheID:      "cache_id",
	CacheCopy:    "cache_copy",
	CacheSpam:    "cache_spam",
	ClamAV:       "clamav",
	SpamdPrimary: "spamd",
	SpamdExtra:   "spamd_extra",
}

// Roles lists every role in declaration order.
func Roles() []Role {
	out := make([]Role, NumRoles)
	for i := range out {
		out[i] = Role(i)
	}
	return out
}

func (r Role) Valid() bool {
	return r >= 0 && int(r) < NumRoles
}

func (r Role) String() string {
	if !r.Valid() {
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
	return roleNames[r]
}

// IsCache reports whether r is one of the six cache roles.
func (r Role) IsCache() bool {
	return r >= CacheGrey && r <= CacheSpam
}

// IsSpamd reports whether r is a scan-scoring role. Only these accept the
// "r:" protocol tag.
func (r Role) IsSpamd() bool {
	return r == SpamdPrimary || r == SpamdExtra
}

// Capacity is the fixed maximum number of endpoints a pool of role r holds.
func (r Role) Capacity() int {
	switch {
	case r.IsCache():
		return MaxCacheServers
	case r == ClamAV:
		return MaxClamAVServers
	case r.IsSpamd():
		return MaxSpamdServers
	}
	return 0
}

// DefaultPort is the port used when a server spec carries none.
func (r Role) DefaultPort() uint16 {
	switch {
	case r.IsCache():
		return DefaultCachePort
	case r == ClamAV:
		return DefaultClamAVPort
	case r.IsSpamd():
		return DefaultSpamdPort
	}
	return 0
}

// Endpoint is a single backend server. Priority 0 means unset.
type Endpoint struct {
	Address  string `json:"address"`
	Port     uint16 `json:"port"`
	Priority uint   `json:"priority,omitempty"`
}

// HostPort joins address and port, bracketing IPv6 literals.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(int(e.Port)))
}
