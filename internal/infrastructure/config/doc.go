// Package config handles loading and validating homied configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with HOMIED_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, dev := range cfg.Devices {
//	    fmt.Println(dev.ID, dev.Name)
//	}
package config
