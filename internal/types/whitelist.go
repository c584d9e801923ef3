package types

// MaxAddrLen bounds the recipient text considered by a whitelist lookup.
const MaxAddrLen = 324

// Scope selects one of the two recipient whitelists.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeLimit

	NumScopes = int(ScopeLimit) + 1
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeLimit:
		return "limit"
	}
	return "unknown"
}

// ParseScope is the inverse of Scope.String.
func ParseScope(s string) (Scope, bool) {
	switch s {
	case "global":
		return ScopeGlobal, true
	case "limit":
		return ScopeLimit, true
	}
	return 0, false
}

// Kind is the classification a whitelist key received at insertion.
type Kind int

const (
	KindUser Kind = iota
	KindUserDomain
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindUserDomain:
		return "user_domain"
	case KindDomain:
		return "domain"
	}
	return "unknown"
}

// ACL names a network prefix set owned by the policy.
type ACL int

const (
	GreyWhitelist ACL = iota
	LimitWhitelist
	SpamdWhitelist
	ClamAVWhitelist
	DKIMNetworks
	OurNetworks

	NumACLs = int(OurNetworks) + 1
)

var aclNames = [NumACLs]string{
	GreyWhitelist:   "grey_whitelist",
	LimitWhitelist:  "limit_whitelist",
	SpamdWhitelist:  "spamd_whitelist",
	ClamAVWhitelist: "clamav_whitelist",
	DKIMNetworks:    "dkim_networks",
	OurNetworks:     "our_networks",
}

func (a ACL) Valid() bool {
	return a >= 0 && int(a) < NumACLs
}

func (a ACL) String() string {
	if !a.Valid() {
		return "unknown"
	}
	return aclNames[a]
}

// ParseACL is the inverse of ACL.String.
func ParseACL(s string) (ACL, bool) {
	for i, n := range aclNames {
		if n == s {
			return ACL(i), true
		}
	}
	return 0, false
}
