package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	dataDir    string
	appVersion string // set in Execute, used by serve and mcp
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remodel",
		Short: "Reverse-map database schemas into Go entities",
		Long: `Remodel connects to a SQL database, introspects its schema, and turns the
tables you select into a reviewable mapping document plus the Go entity
declarations behind it.

The mapping document is minimized YAML: values the generator rederives from
naming conventions are stripped, so reviews only see what is special about
each table. The same pipeline powers the CLI, an HTTP preview server with
OpenAPI docs, and an MCP server for AI agents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./remodel.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "snapshot archive directory (default: ~/.remodel)")

	cobra.OnInitialize(initConfig)

	// Add subcommands
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("remodel")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.remodel")
	}

	viper.SetEnvPrefix("REMODEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
