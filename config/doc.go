// Package config provides configuration for bus instances.
//
// Configuration exists only during initialization: bus.New reads a BusConfig
// and copies what it needs. Defaults come from DefaultBusConfig and other
// sources are layered on top with Merge:
//
//	cfg, err := config.LoadBusConfig("bus.json")
//	if err != nil {
//	    return err
//	}
//	cfg.Merge(&config.BusConfig{FailurePolicy: config.FailureFailFast})
//
// Merge semantics by field type:
//
//   - Strings: merged if source is non-empty
//   - Durations: merged if source is greater than zero
//   - Pointers and funcs: merged if source is non-nil
package config
