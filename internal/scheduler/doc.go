// Package scheduler arms and cancels wake-up triggers for alarms.
//
// Each alarm owns two trigger slots: a primary slot shared by MAIN and SNOOZE triggers
// and a watchdog slot for TIMEOUT. Arming a slot supersedes whatever it held before.
// Fired triggers leave the armed set before they are handed to the sink.
package scheduler
