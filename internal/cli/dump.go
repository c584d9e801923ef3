package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var dumpQuery string

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVarP(&dumpQuery, "query", "q", "", "JMESPath expression applied to the snapshot")
}

var dumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Print the loaded policy as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPolicy(args)
		if err != nil {
			return err
		}
		defer p.Release()

		var v any = p.Snapshot()
		if dumpQuery != "" {
			if v, err = p.Snapshot().Query(dumpQuery); err != nil {
				return err
			}
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
