// Package logger wraps zap with a global sugared logger and context helpers.
//
// Every lifecycle use case takes a context and logs through the logger it carries,
// so alarm ids and trigger kinds travel with each line. The level is shared and can
// be changed while the daemon runs.
package logger
