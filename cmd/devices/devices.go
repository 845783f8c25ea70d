package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/pendant-go/internal/audiocore/sources"
)

// Command creates a command that lists the host's capture devices.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices usable by the malgo source",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := sources.ListAvailableDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("No capture devices found")
				return nil
			}
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s %2d  %s\n", marker, d.Index, d.Name)
			}
			return nil
		},
	}
}
