package policy

import (
	"encoding/base64"
	"fmt"
	"milterpolicy/internal/types"
	"net/netip"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
	"github.com/klauspost/compress/zstd"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// Snapshot is a read-only view of a policy, suitable for JSON output.
type Snapshot struct {
	Source     string                      `json:"source,omitempty"`
	Settings   types.Settings              `json:"settings"`
	Pools      map[string][]types.Endpoint `json:"pools"`
	Whitelists map[string]int              `json:"whitelists"`
	Networks   map[string]NetworkInfo      `json:"networks"`
}

type NetworkInfo struct {
	Size     int      `json:"size"`
	Prefixes []string `json:"prefixes,omitempty"`
}

type prefixLister interface {
	Prefixes() []netip.Prefix
}

func (p *Policy) Snapshot() Snapshot {
	s := Snapshot{
		Source:     p.Source,
		Settings:   p.Settings,
		Pools:      make(map[string][]types.Endpoint, types.NumRoles),
		Whitelists: make(map[string]int, types.NumScopes),
		Networks:   make(map[string]NetworkInfo, types.NumACLs),
	}
	for _, role := range types.Roles() {
		s.Pools[role.String()] = p.Pools.Pool(role).Endpoints()
	}
	for i := 0; i < types.NumScopes; i++ {
		scope := types.Scope(i)
		s.Whitelists[scope.String()] = p.Rcpts.Len(scope)
	}
	for i, t := range p.networks {
		info := NetworkInfo{Size: t.Len()}
		if l, ok := t.(prefixLister); ok {
			for _, pfx := range l.Prefixes() {
				info.Prefixes = append(info.Prefixes, pfx.String())
			}
		}
		s.Networks[types.ACL(i).String()] = info
	}
	return s
}

// Query evaluates a JMESPath expression against the JSON form of the
// snapshot. A non-matching expression yields nil.
func (s Snapshot) Query(expression string) (any, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	v, err := jmespath.Search(expression, doc)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return v, nil
}

func (s Snapshot) document() (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// EncodeSnapshot encodes s as JSON, compresses and base64-url encodes it.
func EncodeSnapshot(s Snapshot) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	z := enc.EncodeAll(b, make([]byte, 0, len(b)))
	return base64.RawURLEncoding.EncodeToString(z), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(in string) (Snapshot, error) {
	z, err := base64.RawURLEncoding.DecodeString(in)
	if err != nil {
		return Snapshot{}, err
	}
	b, err := dec.DecodeAll(z, nil)
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
