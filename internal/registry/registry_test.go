package registry

import (
	"fmt"
	"milterpolicy/internal/types"
	"testing"

	"github.com/stretchr/testify/suite"
)

type recordingWarner struct {
	msgs []string
}

func (w *recordingWarner) Warnf(format string, args ...any) {
	w.msgs = append(w.msgs, fmt.Sprintf(format, args...))
}

type RegistryTestSuite struct {
	suite.Suite

	warn *recordingWarner
	reg  *Registry
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) SetupTest() {
	s.warn = &recordingWarner{}
	s.reg = New(s.warn)
}

// TestCapacity fills every pool to its capacity and checks the next insertion
// is rejected without touching the pool.
func (s *RegistryTestSuite) TestCapacity() {
	for _, role := range types.Roles() {
		pool := s.reg.Pool(role)
		s.Require().NotNil(pool)
		s.Equal(role.Capacity(), pool.Cap())
		for i := 0; i < pool.Cap(); i++ {
			s.Require().NoError(s.reg.AddEndpoint(role, fmt.Sprintf("10.0.0.%d", i%250+1), 25), role.String())
		}
		before := pool.Endpoints()

		err := s.reg.AddEndpoint(role, "overflow.example.com", 25)
		s.ErrorIs(err, types.ErrPoolFull)
		s.Equal(pool.Cap(), pool.Len())
		s.Equal(before, pool.Endpoints())
	}
}

func (s *RegistryTestSuite) TestCapacityPerRole() {
	s.Equal(types.MaxCacheServers, s.reg.Pool(types.CacheGrey).Cap())
	s.Equal(types.MaxCacheServers, s.reg.Pool(types.CacheSpam).Cap())
	s.Equal(types.MaxClamAVServers, s.reg.Pool(types.ClamAV).Cap())
	s.Equal(types.MaxSpamdServers, s.reg.Pool(types.SpamdPrimary).Cap())
	s.Equal(types.MaxSpamdServers, s.reg.Pool(types.SpamdExtra).Cap())
}

func (s *RegistryTestSuite) TestPoolsAreIndependent() {
	s.NoError(s.reg.AddEndpoint(types.SpamdPrimary, "a", 11333))
	s.NoError(s.reg.AddEndpoint(types.SpamdExtra, "b", 11333))
	s.NoError(s.reg.AddEndpoint(types.SpamdExtra, "c", 11333))

	s.Equal(1, s.reg.Pool(types.SpamdPrimary).Len())
	s.Equal(2, s.reg.Pool(types.SpamdExtra).Len())
	s.Equal(0, s.reg.Pool(types.ClamAV).Len())
	s.Equal(3, s.reg.Len())
}

func (s *RegistryTestSuite) TestEmptyHost() {
	for _, spec := range []string{"", ":25", ":25:1", "[]:25"} {
		err := s.reg.AddEndpoint(types.ClamAV, spec, 3310)
		s.ErrorIs(err, types.ErrEmptyHost, spec)
	}
	s.Equal(0, s.reg.Pool(types.ClamAV).Len())
}

func (s *RegistryTestSuite) TestInvalidPort() {
	for _, spec := range []string{
		"host:notanumber",
		"host:",
		"host:65536",
		"host:-1",
		"host:0",
		"host:25x",
		"host:1:2:3",
		"[::1]x",
	} {
		err := s.reg.AddEndpoint(types.CacheGrey, spec, 11211)
		s.ErrorIs(err, types.ErrInvalidPort, spec)
	}
	s.Equal(0, s.reg.Pool(types.CacheGrey).Len())
}

func (s *RegistryTestSuite) TestInvalidPriority() {
	err := s.reg.AddEndpoint(types.ClamAV, "host:3310:high", 3310)
	s.ErrorIs(err, types.ErrInvalidPriority)
	s.Equal(0, s.reg.Pool(types.ClamAV).Len())
}

func (s *RegistryTestSuite) TestDefaultPort() {
	s.Require().NoError(s.reg.AddEndpoint(types.ClamAV, "host", 25))
	eps := s.reg.Pool(types.ClamAV).Endpoints()
	s.Require().Len(eps, 1)
	s.Equal(types.Endpoint{Address: "host", Port: 25}, eps[0])
	s.Zero(eps[0].Priority)
}

func (s *RegistryTestSuite) TestPortAndPriority() {
	for _, role := range []types.Role{types.CacheWhite, types.ClamAV, types.SpamdPrimary} {
		s.Require().NoError(s.reg.AddEndpoint(role, "host:2500:5", role.DefaultPort()))
		eps := s.reg.Pool(role).Endpoints()
		s.Require().Len(eps, 1)
		s.Equal(types.Endpoint{Address: "host", Port: 2500, Priority: 5}, eps[0])
	}
}

func (s *RegistryTestSuite) TestEmptyPriorityIsUnset() {
	s.Require().NoError(s.reg.AddEndpoint(types.ClamAV, "host:3310:", 3310))
	s.Equal(uint(0), s.reg.Pool(types.ClamAV).Endpoints()[0].Priority)
}

func (s *RegistryTestSuite) TestIPv6Literal() {
	s.Require().NoError(s.reg.AddEndpoint(types.ClamAV, "[2001:db8::1]:3311:2", 3310))
	s.Require().NoError(s.reg.AddEndpoint(types.ClamAV, "[::1]", 3310))
	eps := s.reg.Pool(types.ClamAV).Endpoints()
	s.Equal(types.Endpoint{Address: "2001:db8::1", Port: 3311, Priority: 2}, eps[0])
	s.Equal(types.Endpoint{Address: "::1", Port: 3310}, eps[1])
	s.Equal("[::1]:3310", eps[1].HostPort())
}

func (s *RegistryTestSuite) TestInsertionOrder() {
	for _, h := range []string{"c", "a", "b"} {
		s.Require().NoError(s.reg.AddEndpoint(types.CacheID, h, 11211))
	}
	eps := s.reg.Pool(types.CacheID).Endpoints()
	s.Equal([]string{"c", "a", "b"}, []string{eps[0].Address, eps[1].Address, eps[2].Address})
}

// TestProtocolTag checks that the "r:" prefix is stripped for scan-scoring
// pools only.
func (s *RegistryTestSuite) TestProtocolTag() {
	s.Require().NoError(s.reg.AddEndpoint(types.SpamdPrimary, "r:spam.example.com:11333:3", 11333))
	s.Require().NoError(s.reg.AddEndpoint(types.SpamdExtra, "r:spam2.example.com", 11333))
	s.Equal(types.Endpoint{Address: "spam.example.com", Port: 11333, Priority: 3}, s.reg.Pool(types.SpamdPrimary).Endpoints()[0])
	s.Equal(types.Endpoint{Address: "spam2.example.com", Port: 11333}, s.reg.Pool(types.SpamdExtra).Endpoints()[0])

	// Outside spamd pools "r" is an ordinary host name.
	err := s.reg.AddEndpoint(types.ClamAV, "r:clam.example.com", 3310)
	s.ErrorIs(err, types.ErrInvalidPort)
}

func (s *RegistryTestSuite) TestEndpointsIsACopy() {
	s.Require().NoError(s.reg.AddEndpoint(types.ClamAV, "host", 3310))
	eps := s.reg.Pool(types.ClamAV).Endpoints()
	eps[0].Address = "changed"
	s.Equal("host", s.reg.Pool(types.ClamAV).Endpoints()[0].Address)
}

func (s *RegistryTestSuite) TestInvalidRole() {
	s.Nil(s.reg.Pool(types.Role(99)))
	s.ErrorIs(s.reg.AddEndpoint(types.Role(99), "host", 1), types.ErrInvalidRole)
	s.ErrorIs(s.reg.AddCacheServer(types.ClamAV, "host", ""), types.ErrInvalidRole)
}

func (s *RegistryTestSuite) TestCacheServerDefaults() {
	s.Require().NoError(s.reg.AddCacheServer(types.CacheGrey, "memc.example.com", ""))
	s.Equal(types.Endpoint{Address: "memc.example.com", Port: 11211}, s.reg.Pool(types.CacheGrey).Endpoints()[0])
	s.Empty(s.warn.msgs)
}

// TestCacheServerMirror checks that a mirror is ignored with a warning while
// the primary is still accepted.
func (s *RegistryTestSuite) TestCacheServerMirror() {
	s.Require().NoError(s.reg.AddCacheServer(types.CacheLimits, "primary:11212", "mirror:11213"))
	eps := s.reg.Pool(types.CacheLimits).Endpoints()
	s.Require().Len(eps, 1)
	s.Equal(types.Endpoint{Address: "primary", Port: 11212}, eps[0])
	s.Require().Len(s.warn.msgs, 1)
	s.Contains(s.warn.msgs[0], "mirror:11213")
}

func (s *RegistryTestSuite) TestCacheServerMirrorRejectedPrimary() {
	err := s.reg.AddCacheServer(types.CacheLimits, "primary:bad", "mirror")
	s.ErrorIs(err, types.ErrInvalidPort)
	s.Empty(s.warn.msgs)
}

func (s *RegistryTestSuite) TestNilWarner() {
	reg := New(nil)
	s.NoError(reg.AddCacheServer(types.CacheCopy, "a", "b"))
	s.Equal(1, reg.Pool(types.CacheCopy).Len())
}
