package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cloudsync/internal/config"
	"cloudsync/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "cloudsync",
		Short:         "CloudSync stores, lists and serves uploaded files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if yamlOutput {
				outputFormatter = format.YAMLFormatter{}
				jsonOutput = true
			}
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newUploadCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newGetCmd(cfg),
		newRemoveCmd(cfg, &jsonOutput),
		newStorageCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newUserCmd(cfg, &jsonOutput),
	)

	return cmd
}
