// Package dispatcher delivers fired triggers to the lifecycle coordinator.
//
// Triggers arrive on one inbound channel. A consumer routes them to a FIFO worker per
// alarm id, so deliveries for one alarm never overlap while distinct alarms proceed in
// parallel. Delivery failures are retried with a bounded policy, then logged and dropped.
package dispatcher
