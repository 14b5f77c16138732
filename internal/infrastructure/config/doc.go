// Package config handles loading and validating the relay hub configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (PORT, WSCONTROLLER_*)
//   - Validation of required fields
//   - Default value handling
//
// With no file and no environment the hub listens on 0.0.0.0:9000 and runs
// the two liveness schedules of the original relay (15s/30s and 30s/60s).
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("WSCONTROLLER_CONFIG"))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Addr())
package config
