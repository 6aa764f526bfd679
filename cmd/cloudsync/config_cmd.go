package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloudsync/internal/config"
)

func newConfigCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change configuration",
	}

	cmd.AddCommand(
		newConfigGetCmd(cfg),
		newConfigSetCmd(),
		newConfigListCmd(cfg),
	)
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective config value",
		Args:  requireExactlyArgs(1, "key is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := configValue(cfg, args[0])
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigListCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every effective config value",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range config.AllowedKeys() {
				value, err := cfg.Get(key)
				if err != nil {
					return err
				}
				if err := writePlain("%s = %s\n", key, value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a config value to the project or global file",
		Args:  requireExactlyArgs(2, "key and value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathFn := config.ProjectPath
			if global {
				pathFn = config.GlobalPath
			}
			path, err := pathFn()
			if err != nil {
				return err
			}
			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			return writePlain("%s updated in %s\n", args[0], path)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to global config (~/"+config.ConfigFileName+")")
	return cmd
}

func configValue(cfg *config.Config, key string) (string, error) {
	if !config.IsAllowedKey(key) {
		return "", fmt.Errorf("unknown key: %s (allowed: %v)", key, config.AllowedKeys())
	}
	return cfg.Get(key)
}
