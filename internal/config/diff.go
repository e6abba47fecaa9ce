package config

import "reflect"

// RequiresRestart reports whether moving from previous to current changes
// anything that is only read at startup. Only the logging section can be
// applied to a running gateway.
func RequiresRestart(previous, current *GatewayConfig) bool {
	if previous == nil || current == nil {
		return previous != current
	}
	a, b := *previous, *current
	a.Logging, b.Logging = LoggingConfig{}, LoggingConfig{}
	return !reflect.DeepEqual(a, b)
}
