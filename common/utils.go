// Package common holds process-wide helpers shared by the binaries.
package common

// Version is overridden at build time with -ldflags "-X github.com/ruteri/audit-registry/common.Version=..."
var Version = "dev"
