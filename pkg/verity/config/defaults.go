// Package config provides configuration management for the verity
// structural validator.
package config

// Default configuration values for verity.
const (
	// DefaultRoot is the file tree validated when none is specified.
	DefaultRoot = "."

	// DefaultManifest is the rule manifest looked up relative to the
	// root when none is specified.
	DefaultManifest = ".verity.yaml"

	// DefaultTTLSeconds is the scan-cache lifetime. Any run shorter
	// than one TTL window pays for at most one scan per scope.
	DefaultTTLSeconds = 60

	// DefaultTimeoutSeconds is the per-batch wall-clock bound.
	// Zero disables the bound.
	DefaultTimeoutSeconds = 0

	// DefaultOutput is the report format used when none is specified.
	DefaultOutput = "pretty"

	// DefaultMetricsListen is the /metrics address for watch mode.
	DefaultMetricsListen = "127.0.0.1:9309"
)
