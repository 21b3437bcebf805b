// Package config handles loading and validating the bridge configuration.
//
// This package manages:
//   - Loading configuration from JSON or YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling (metric topic suffixes, client options)
//
// Security Considerations:
//   - Broker credentials should be set via HYGROBRIDGE_MQTT_USERNAME/PASSWORD
//   - Bind keys are secrets; the config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("config.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.URL, len(cfg.Devices))
package config
