package cli

import (
	"context"
	"fmt"
	"milterpolicy/internal/backends"
	redisbackend "milterpolicy/internal/backends/redis"
	"milterpolicy/internal/types"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var pingTimeout time.Duration

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 5*time.Second, "Overall deadline for probing every pool")
}

var pingCmd = &cobra.Command{
	Use:   "ping [file]",
	Short: "Probe every cache server of the policy",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPolicy(args)
		if err != nil {
			return err
		}
		defer p.Release()

		opts, err := backends.CacheOptionsFromEnv(p.Settings.Cache)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
		defer cancel()

		out := cmd.OutOrStdout()
		down := 0
		for _, role := range types.Roles() {
			pool := p.Pools.Pool(role)
			if !role.IsCache() || pool.Len() == 0 {
				continue
			}
			ring, err := redisbackend.NewRing(pool, opts)
			if err != nil {
				return err
			}
			failed := redisbackend.Ping(ctx, ring)
			for addr := range redisbackend.Addrs(pool) {
				status := "up"
				if e, ok := failed[addr]; ok {
					status = "down"
					down++
					log.WithFields(log.Fields{"pool": role.String(), "server": addr}).WithError(e).Warn("cache server unreachable")
				}
				fmt.Fprintf(out, "%-12s %-40s %s\n", role, addr, status)
			}
			_ = ring.Close()
		}
		if down > 0 {
			return fmt.Errorf("%d cache server(s) unreachable", down)
		}
		return nil
	},
}
