// Package config handles loading and validating the Tuya climate bridge
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GRAYLOGIC_TUYA_*)
//   - Validation of required fields
//   - Default value handling
//
// Per-device air conditioner options live in a separate devices file
// (tuya.devices_file) loaded by the Tuya bridge package.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.ID)
package config
