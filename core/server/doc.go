// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber application from these settings; this
// package only defines the values and their defaults.
//
// # Configuration
//
// Config defines the listen port, the API key guarding every route, request
// timeouts and the maximum body size.
package server
