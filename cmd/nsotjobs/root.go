package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides the default config path when --config is not given.
const configEnvVar = "NSOTJOBS_CONFIG"

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// newRootCommand builds the nsotjobs command tree.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "nsotjobs",
		Short: "Job host for a network source of truth",
		Long: `nsotjobs runs jobs against a device registry and records their results.

Jobs can be run once from the command line, or hosted by "nsotjobs serve",
which exposes them over HTTP and, when enabled, over MQTT.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"path to config.yaml (default $"+configEnvVar+" or "+defaultConfigPath+")")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newRunCommand(opts),
		newDevicesCommand(opts),
		newResultsCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

// resolveConfigPath picks the config file: --config, then $NSOTJOBS_CONFIG,
// then the default. explicit is false only for the default path, which may
// be missing.
func resolveConfigPath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if env := os.Getenv(configEnvVar); env != "" {
		return env, true
	}
	return defaultConfigPath, false
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "nsotjobs %s (commit: %s, built: %s)\n", version, commit, date)
			return err
		},
	}
}
