package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/pendant-go/cmd/config"
	"github.com/tphakala/pendant-go/cmd/devices"
	"github.com/tphakala/pendant-go/cmd/receive"
	"github.com/tphakala/pendant-go/cmd/simulate"
	"github.com/tphakala/pendant-go/cmd/stream"
	"github.com/tphakala/pendant-go/internal/buildinfo"
	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var central *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:          "pendant",
		Short:        "Wearable audio streaming core",
		Version:      build.String(),
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		stream.Command(settings),
		simulate.Command(settings),
		receive.Command(settings),
		config.Command(settings),
		devices.Command(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, skip := cmd.Annotations[config.SkipSetup]; skip {
			return nil
		}

		loaded, err := conf.Load()
		if err != nil {
			return err
		}
		*settings = *loaded

		central, err = logger.NewCentralLogger(settings.LoggingConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.SetGlobal(central)

		central.Module("main").Debug("settings loaded",
			logger.String("version", build.GetVersion()),
			logger.String("build_date", build.GetBuildDate()),
			logger.String("command", cmd.Name()))
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if central == nil {
			return nil
		}
		_ = central.Flush()
		return central.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
