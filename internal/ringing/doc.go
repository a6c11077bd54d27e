// Package ringing owns the single shared ringing resource: sound, vibration
// and the keep-alive lease that keeps the daemon ringing. At most one alarm holds it.
package ringing
