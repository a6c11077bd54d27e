// Package common holds helpers shared by the daemon and the control CLI.
//
// It provides a gRPC client wrapper with per-call timeouts and the actor
// (hostname and username) attached to every call for the audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
