// Package version reports the build version of streamkit binaries.
package version
