package ports

// PrefixTrie is the IP prefix set consulted by network ACLs.
// Insert MUST be atomic: either every prefix described by spec is added and
// true is returned, or the trie is left untouched and false is returned.
type PrefixTrie interface {
	// Insert adds an IP address or CIDR (or a list of them) to the set.
	Insert(spec string) bool

	// Lookup reports whether ip falls inside any inserted prefix.
	Lookup(ip string) bool

	// Len is the number of distinct prefixes stored.
	Len() int

	// Destroy releases the trie. A destroyed trie is empty.
	Destroy()
}
