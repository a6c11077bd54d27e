// Package alarm implements the gRPC transport of the alarm clock daemon.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// "json" content subtype, so no generated code is involved. The service
// descriptor, the server adapter and the client stub live here.
package alarm
