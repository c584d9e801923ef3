// Package acl feeds configured networks into the prefix tries used by the
// network whitelists.
package acl

import (
	"milterpolicy/internal/ports"
	"milterpolicy/internal/types"
)

// AddNetwork inserts spec, an address, CIDR or list of them, into trie.
// A failed insertion leaves trie unchanged.
func AddNetwork(trie ports.PrefixTrie, spec string) error {
	if trie == nil || !trie.Insert(spec) {
		return types.Err(types.ErrInvalidNetwork, nil, "cannot insert ip to tree: %s", spec)
	}
	return nil
}
