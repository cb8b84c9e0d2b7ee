// Package constant defines immutable application-level identifiers and build metadata.
package constant

const (
	// App is the canonical application identifier used for filesystem paths, env prefixes and CLI branding.
	App = "bmevideo"

	// Version is the current application semantic version string.
	Version = "0.3.1"

	// UserAgent is sent with every media transfer.
	UserAgent = "bmevideo/" + Version
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// MediaCacheDir is the name of the directory holding content-addressed media artifacts.
const MediaCacheDir = "BMEVideoCache"
