package cli

import (
	"fmt"
	"milterpolicy/internal/types"

	"github.com/spf13/cobra"
)

var lookupScope string

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.AddCommand(lookupRcptCmd, lookupIPCmd)
	lookupRcptCmd.Flags().StringVar(&lookupScope, "scope", types.ScopeGlobal.String(), "Whitelist scope: global or limit")
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Query the policy file without starting the server",
}

var lookupRcptCmd = &cobra.Command{
	Use:   "rcpt <address>",
	Short: "Check a recipient against a whitelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, ok := types.ParseScope(lookupScope)
		if !ok {
			return fmt.Errorf("unknown scope %q", lookupScope)
		}
		p, err := loadPolicy(nil)
		if err != nil {
			return err
		}
		defer p.Release()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s whitelisted=%t\n", scope, args[0], p.RcptWhitelisted(scope, args[0]))
		return nil
	},
}

var lookupIPCmd = &cobra.Command{
	Use:   "ip <acl> <address>",
	Short: "Check an IP address against a network ACL",
	Long: "ACL is one of grey_whitelist, limit_whitelist, spamd_whitelist, clamav_whitelist,\n" +
		"dkim_networks or our_networks.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		acl, ok := types.ParseACL(args[0])
		if !ok {
			return fmt.Errorf("unknown acl %q", args[0])
		}
		p, err := loadPolicy(nil)
		if err != nil {
			return err
		}
		defer p.Release()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s listed=%t\n", acl, args[1], p.AllowedBy(acl, args[1]))
		return nil
	},
}
