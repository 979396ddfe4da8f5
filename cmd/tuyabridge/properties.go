package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-tuya/internal/bridges/tuya"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
)

// deviceDeclaration is the JSON printed by the properties command.
type deviceDeclaration struct {
	DeviceID       string                   `json:"device_id"`
	GatewayID      string                   `json:"gateway_id"`
	Name           string                   `json:"name"`
	Representation accessory.Representation `json:"representation"`
	Exposed        []accessory.Exposure     `json:"exposed"`
}

func newPropertiesCommand() *cobra.Command {
	var devicesPath, deviceID string

	cmd := &cobra.Command{
		Use:   "properties",
		Short: "Print the properties each device exposes",
		Long: `properties loads the devices file and prints, as JSON, the services and
characteristics each configured air conditioner would expose. Nothing is
connected; use it to check a devices file before deployment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printProperties(cmd.OutOrStdout(), devicesPath, deviceID)
		},
	}
	cmd.Flags().StringVarP(&devicesPath, "devices", "d", "configs/devices.yaml", "devices file")
	cmd.Flags().StringVar(&deviceID, "device", "", "only this device")
	return cmd
}

// printProperties writes the exposed-properties declaration of every device,
// or of deviceID only.
func printProperties(w io.Writer, devicesPath, deviceID string) error {
	devices, err := tuya.LoadDevices(devicesPath)
	if err != nil {
		return err
	}

	out := make([]deviceDeclaration, 0, len(devices))
	for _, d := range devices {
		if deviceID != "" && d.DeviceID != deviceID {
			continue
		}
		acc, err := d.Accessory()
		if err != nil {
			return fmt.Errorf("device %s: %w", d.DeviceID, err)
		}
		out = append(out, deviceDeclaration{
			DeviceID:       d.DeviceID,
			GatewayID:      d.GatewayID,
			Name:           acc.Name(),
			Representation: acc.Representation(),
			Exposed:        acc.Exposed(),
		})
	}
	if deviceID != "" && len(out) == 0 {
		return fmt.Errorf("%w: %s", tuya.ErrUnknownDevice, deviceID)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
