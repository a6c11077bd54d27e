// Package alarm implements persistence for the Alarm aggregate.
//
// Repository is the read/write contract used by the lifecycle coordinator.
// MemoryRepository, SQLiteRepository and NATSRepository implement it; all of
// them hand out deep copies and publish a fresh snapshot of every alarm to
// Watch subscribers after each mutation.
package alarm
