// Package version reports the build of alarm-clockd and alarmctl.
//
// Version, Commit and BuildTime can be set with -ldflags; otherwise the VCS data
// embedded by the Go toolchain is used.
package version
