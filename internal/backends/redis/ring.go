package redis

import (
	"context"
	"crypto/tls"
	"milterpolicy/internal/registry"
	"milterpolicy/internal/types"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RingOptions carries the connection settings shared by every shard of a
// cache ring.
type RingOptions struct {
	Username    string
	Password    string
	DB          int
	TLSConfig   *tls.Config
	DialTimeout time.Duration
}

// Addrs maps shard names to host:port for every endpoint of pool. The shard
// name is the endpoint address itself, so repeated endpoints collapse.
func Addrs(pool *registry.Pool) map[string]string {
	out := make(map[string]string, pool.Len())
	for _, ep := range pool.Endpoints() {
		hp := ep.HostPort()
		out[hp] = hp
	}
	return out
}

// NewRing builds a consistent-hashing client over the endpoints of a cache
// pool.
func NewRing(pool *registry.Pool, opts RingOptions) (*redis.Ring, error) {
	if pool == nil || !pool.Role().IsCache() {
		return nil, types.Err(types.ErrInvalidRole, nil, "not a cache pool")
	}
	if pool.Len() == 0 {
		return nil, types.Err(types.ErrEmptyHost, nil, "%s has no servers", pool.Role())
	}
	return redis.NewRing(&redis.RingOptions{
		Addrs:       Addrs(pool),
		Username:    opts.Username,
		Password:    opts.Password,
		DB:          opts.DB,
		TLSConfig:   opts.TLSConfig,
		DialTimeout: opts.DialTimeout,
	}), nil
}

// Ping probes every shard of ring and returns the failures keyed by shard
// address. An empty map means every shard answered.
func Ping(ctx context.Context, ring *redis.Ring) map[string]error {
	var mu sync.Mutex
	failed := make(map[string]error)
	_ = ring.ForEachShard(ctx, func(ctx context.Context, cli *redis.Client) error {
		if err := cli.Ping(ctx).Err(); err != nil {
			mu.Lock()
			failed[cli.Options().Addr] = err
			mu.Unlock()
		}
		return nil
	})
	return failed
}
