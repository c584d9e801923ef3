package cli

import (
	"fmt"
	"milterpolicy/internal/types"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a policy file",
	Long:  "Loads the policy file and prints what it defines. Exits non-zero on the first invalid directive.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPolicy(args)
		if err != nil {
			return err
		}
		defer p.Release()

		out := cmd.OutOrStdout()
		for _, role := range types.Roles() {
			pool := p.Pools.Pool(role)
			if pool.Len() == 0 {
				continue
			}
			fmt.Fprintf(out, "pool %-12s %d/%d\n", role, pool.Len(), pool.Cap())
		}
		for i := 0; i < types.NumACLs; i++ {
			acl := types.ACL(i)
			if n := p.Network(acl).Len(); n > 0 {
				fmt.Fprintf(out, "acl  %-16s %d prefixes\n", acl, n)
			}
		}
		for i := 0; i < types.NumScopes; i++ {
			scope := types.Scope(i)
			if n := p.Rcpts.Len(scope); n > 0 {
				fmt.Fprintf(out, "rcpt %-6s %d entries\n", scope, n)
			}
		}
		fmt.Fprintf(out, "%s: OK\n", p.Source)
		return nil
	},
}
