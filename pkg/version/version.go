// Package version holds the coalview release version.
package version

// Version is the current coalview version, overridden at release time via
// -ldflags "-X github.com/vanderheijden86/coalview/pkg/version.Version=...".
var Version = "dev"
