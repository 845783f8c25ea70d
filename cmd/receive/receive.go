package receive

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/receiver"
)

// Command creates the companion-side command that subscribes to a pendant
// and records the stream to a WAV file.
func Command(settings *conf.Settings) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Subscribe to a pendant and record its audio to WAV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			config := receiver.ConfigFromSettings(settings)
			stats, err := receiver.RecordToFile(ctx, config)
			if err != nil {
				return err
			}

			fmt.Printf("Recorded %d samples from %d notifications (%d bytes, MTU %d) in %s\n",
				stats.Samples, stats.Notifications, stats.Bytes, stats.MTU,
				stats.Duration.Round(time.Millisecond))
			fmt.Printf("Output: %s\n", config.OutputPath)
			return nil
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop recording after this long (0 records until interrupted)")

	return cmd
}

// setupFlags configures flags specific to the receive command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("url", "", "Base ws:// address of the pendant")
	cmd.Flags().Uint16("mtu", 0, "ATT MTU to request from the pendant")
	cmd.Flags().StringP("output", "o", "", "WAV file to write")
	cmd.Flags().Int("samplerate", 0, "Sample rate of the recorded stream")
	cmd.Flags().Int("channels", 0, "Channel count of the recorded stream")

	bindings := map[string]string{
		"url":        "receiver.url",
		"mtu":        "receiver.mtu",
		"output":     "receiver.outputpath",
		"samplerate": "receiver.samplerate",
		"channels":   "receiver.channels",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
