// Package version provides information about the build version of constkit.
package version

// BuildInfo holds version information about the build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info() BuildInfo {
	// Set via -ldflags "-X 'constkit/internal/core/version.version=v0.1.0'
	// -X 'constkit/internal/core/version.commit=abcd' -X 'constkit/internal/core/version.date=2026-10-01'"
	return BuildInfo{
		Service: "constkit",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
