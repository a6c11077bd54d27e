// Package client implements the alarmctl operations.
//
// Each operation connects to the daemon over gRPC, performs one lifecycle call
// and prints the outcome as text, JSON or YAML.
package client
