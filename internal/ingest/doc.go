// Package ingest accepts externally delivered triggers from NATS.
package ingest
