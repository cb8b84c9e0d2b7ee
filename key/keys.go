// Package key defines the canonical set of configuration identifiers.
package key

// DefinedFieldsCount is the number of registered configuration fields.
const DefinedFieldsCount = 18

// Content cache - where media artifacts live and how large the store may grow.
const (
	CacheDirectory = "cache.directory"
	CacheMaxSizeMB = "cache.max_size_mb"
)

// Preloading - background transfers that warm the content cache.
const (
	PreloadMaxConcurrent  = "preload.max_concurrent"
	PreloadTimeoutSeconds = "preload.timeout_seconds"
)

// Engine pool.
const (
	PoolMaxSize = "pool.max_size"
)

// Playback - decoder backend selection and session defaults.
const (
	PlayerBackend            = "player.backend"
	PlayerAutoplay           = "player.autoplay"
	PlayerRepeat             = "player.repeat"
	PlayerMuted              = "player.muted"
	PlayerVolume             = "player.volume"
	PlayerProgressIntervalMs = "player.progress_interval_ms"
	PlayerSeekIgnoreMs       = "player.seek_ignore_ms"
)

// Metrics exposition.
const (
	MetricsAddress = "metrics.address"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// Iconography.
const (
	IconsVariant = "icons.variant"
)

// CLI Execution Environment.
const (
	CliColored = "cli.colored"
)
