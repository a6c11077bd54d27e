// Package alarm contains core domain types for the alarm ring lifecycle.
//
// It defines the Alarm aggregate with its lifecycle State, the Mission
// snapshots taken for a ring Episode, trigger kinds owned by the scheduler,
// and the error taxonomy shared by the lifecycle use cases.
package alarm
