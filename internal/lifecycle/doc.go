// Package lifecycle implements the alarm ring lifecycle.
//
// The Coordinator is the only writer of alarms after they are saved by the editor.
// Every use case runs under a lock keyed by alarm id and follows the same order:
// load, compute, cancel the armed triggers, arm the new ones, persist, then drive
// the ringing resource and notifications. A failed arm or save restores the
// previously armed triggers so the stored state and the scheduler agree.
package lifecycle
