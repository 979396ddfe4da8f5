package tuya

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
)

// DevicesFile is the root of the devices YAML file.
type DevicesFile struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig is one air conditioner as configured in the devices file.
// Accessory options are inlined so a device entry reads flat:
//
//	devices:
//	  - device_id: ac-living
//	    gateway_id: bf12ab34cd
//	    name: Living room AC
//	    temperature_divisor: 10
//	    no_auto: true
type DeviceConfig struct {
	// DeviceID is the Gray Logic device identifier. Required.
	DeviceID string `yaml:"device_id"`

	// GatewayID names the gateway topic tree. Defaults to DeviceID.
	GatewayID string `yaml:"gateway_id"`

	accessory.Options `yaml:",inline"`
}

// LoadDevices reads, normalises and validates the devices file.
//
// Parameters:
//   - path: Path to the devices YAML file
//
// Returns:
//   - []DeviceConfig: Devices in file order with defaults applied
//   - error: Read, parse or validation failure (ErrInvalidConfig lists every problem)
func LoadDevices(path string) ([]DeviceConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading devices file: %w", err)
	}
	return ParseDevices(data)
}

// ParseDevices is LoadDevices for in-memory YAML.
func ParseDevices(data []byte) ([]DeviceConfig, error) {
	var file DevicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing devices file: %w", err)
	}

	for i := range file.Devices {
		file.Devices[i].normalise()
	}
	if err := validateDevices(file.Devices); err != nil {
		return nil, err
	}
	return file.Devices, nil
}

func (d *DeviceConfig) normalise() {
	d.DeviceID = strings.TrimSpace(d.DeviceID)
	d.GatewayID = strings.TrimSpace(d.GatewayID)
	if d.GatewayID == "" {
		d.GatewayID = d.DeviceID
	}
	if strings.TrimSpace(d.Name) == "" {
		d.Name = d.DeviceID
	}
}

// validateDevices collects every problem across the file.
func validateDevices(devices []DeviceConfig) error {
	var errs []string
	if len(devices) == 0 {
		errs = append(errs, "devices must have at least one entry")
	}

	ids := make(map[string]bool)
	gateways := make(map[string]string)
	for i, dev := range devices {
		if dev.DeviceID == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].device_id is required", i))
			continue
		}
		if strings.ContainsAny(dev.DeviceID, "/+#") {
			errs = append(errs, fmt.Sprintf("devices[%d].device_id %q must not contain / + or #", i, dev.DeviceID))
		}
		if strings.ContainsAny(dev.GatewayID, "/+#") {
			errs = append(errs, fmt.Sprintf("devices[%d].gateway_id %q must not contain / + or #", i, dev.GatewayID))
		}
		if ids[dev.DeviceID] {
			errs = append(errs, fmt.Sprintf("devices[%d].device_id %q is duplicate", i, dev.DeviceID))
		}
		ids[dev.DeviceID] = true

		if other, taken := gateways[dev.GatewayID]; taken {
			errs = append(errs, fmt.Sprintf("devices[%d].gateway_id %q is already used by %q", i, dev.GatewayID, other))
		} else {
			gateways[dev.GatewayID] = dev.DeviceID
		}

		if _, err := accessory.New(dev.Options); err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d] (%s): %v", i, dev.DeviceID, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: configuration errors: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Accessory resolves the device's accessory configuration.
func (d DeviceConfig) Accessory() (*accessory.Accessory, error) {
	acc, err := accessory.New(d.Options)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", d.DeviceID, err)
	}
	return acc, nil
}
