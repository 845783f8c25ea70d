package stream

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/device"
)

// Command creates the command that runs the pendant until interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Capture audio and stream it to a subscribed client",
		Long: "Start the pendant: capture blocks from the configured source and push them " +
			"to the subscribed client in MTU-sized notifications.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return device.Run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the stream command and binds them
// to their configuration keys, so a flag overrides the file only when set.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("source", "", "Sample source (pattern, malgo, wav)")
	cmd.Flags().String("device", "", "Capture device name substring, malgo only")
	cmd.Flags().String("wav", "", "WAV file replayed by the wav source")
	cmd.Flags().String("preset", "", "Timing preset (m5stick)")
	cmd.Flags().String("transport", "", "Radio transport (wslink, loopback)")
	cmd.Flags().String("listen", "", "Listen address of the wslink transport")
	cmd.Flags().Bool("telemetry", false, "Enable the metrics and status endpoint")
	cmd.Flags().String("telemetry-listen", "", "Listen address of the metrics endpoint")
	cmd.Flags().Bool("mqtt", false, "Publish status reports over MQTT")

	bindings := map[string]string{
		"source":           "audio.source",
		"device":           "audio.device",
		"wav":              "audio.wavpath",
		"preset":           "audio.preset",
		"transport":        "radio.transport",
		"listen":           "radio.listen",
		"telemetry":        "telemetry.enabled",
		"telemetry-listen": "telemetry.listen",
		"mqtt":             "mqtt.enabled",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
