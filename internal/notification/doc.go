// Package notification turns lifecycle states into notifications.
//
// Rendering is a two-stage pipeline. Map is a pure function from a variant to Content,
// and Build turns Content into the Notification handed to a Poster. Variants are a closed
// set dispatched with a type switch.
package notification
