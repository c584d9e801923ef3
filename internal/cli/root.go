package cli

import (
	"milterpolicy/internal/backends"
	"milterpolicy/internal/policy"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var policyFile string

var rootCmd = &cobra.Command{
	Use:           "milterpolicy",
	Short:         "Mail filter policy loader and lookup service",
	Long:          "Loads the milter policy file (server pools, network ACLs, recipient whitelists),\nchecks it, answers lookups and serves them over HTTP with hot reload.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		if policyFile == "" {
			policyFile = backends.PolicyFileFromEnv()
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(loadEnv)
	rootCmd.PersistentFlags().StringVarP(&policyFile, "policy", "p", "", "Path to policy YAML (default $POLICY_FILE or "+backends.DefaultPolicyFile+")")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func loadEnv() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug("The .env file not found.")
	}
}

func setupLogging() {
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// loadPolicy loads the file named by args[0], or the --policy file.
func loadPolicy(args []string) (*policy.Policy, error) {
	path := policyFile
	if len(args) > 0 {
		path = args[0]
	}
	return policy.Load(path, log.WithField("file", path))
}
