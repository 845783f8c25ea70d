// Package config provides the config command for inspecting and creating
// configuration files.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/pendant-go/internal/conf"
)

const defaultConfigPath = "config.yaml"

// SkipSetup annotates commands that run before any settings are loaded
const SkipSetup = "pendant/skip-setup"

// Command creates the config command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after file, environment and flag values are merged. Secrets are masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.Dump(settings)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{SkipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Printf("Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd)
	return cmd
}
