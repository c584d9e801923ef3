package acl

import (
	"milterpolicy/internal/backends/prefix"
	"milterpolicy/internal/types"
	"testing"

	"github.com/stretchr/testify/suite"
)

type IngestTestSuite struct {
	suite.Suite

	trie *prefix.Trie
}

func TestIngestTestSuite(t *testing.T) {
	suite.Run(t, new(IngestTestSuite))
}

func (s *IngestTestSuite) SetupTest() {
	s.trie = prefix.New()
}

func (s *IngestTestSuite) TestAddNetwork() {
	s.NoError(AddNetwork(s.trie, "192.168.0.0/16"))
	s.NoError(AddNetwork(s.trie, "10.0.0.1, 10.0.0.2"))
	s.True(s.trie.Lookup("192.168.4.4"))
	s.True(s.trie.Lookup("10.0.0.2"))
	s.Equal(3, s.trie.Len())
}

func (s *IngestTestSuite) TestRejectedLeavesTrieUnchanged() {
	s.Require().NoError(AddNetwork(s.trie, "192.168.0.0/16"))
	before := s.trie.Prefixes()

	err := AddNetwork(s.trie, "10.0.0.0/8, 300.1.1.1")
	s.ErrorIs(err, types.ErrInvalidNetwork)
	s.Contains(err.Error(), "300.1.1.1")

	s.Equal(before, s.trie.Prefixes())
	s.False(s.trie.Lookup("10.0.0.1"))
}

func (s *IngestTestSuite) TestNotAnIP() {
	s.Require().NoError(AddNetwork(s.trie, "10.0.0.0/8"))
	s.True(s.trie.Lookup("10.20.30.40"))
	s.False(s.trie.Lookup("192.0.2.1"))

	s.ErrorIs(AddNetwork(s.trie, "not-an-ip"), types.ErrInvalidNetwork)
	s.True(s.trie.Lookup("10.20.30.40"))
	s.False(s.trie.Lookup("192.0.2.1"))
	s.Equal(1, s.trie.Len())
}

func (s *IngestTestSuite) TestNilTrie() {
	s.ErrorIs(AddNetwork(nil, "10.0.0.0/8"), types.ErrInvalidNetwork)

	var typed *prefix.Trie
	s.NotPanics(func() {
		s.ErrorIs(AddNetwork(typed, "10.0.0.0/8"), types.ErrInvalidNetwork)
	})
}

func (s *IngestTestSuite) TestDestroyedTrie() {
	s.trie.Destroy()
	s.ErrorIs(AddNetwork(s.trie, "10.0.0.0/8"), types.ErrInvalidNetwork)
}
