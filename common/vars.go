// Package common holds process-wide helpers shared by the barnyard commands:
// logger setup, version information and small file utilities.
package common

// PackageName is used as the metrics namespace and default log service.
const PackageName = "barnyard"

// Version is set at build time with -ldflags "-X github.com/ruteri/barnyard/common.Version=...".
var Version = "dev"
