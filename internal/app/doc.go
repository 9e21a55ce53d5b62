// Package app wires the license server together: configuration,
// logging, OpenTelemetry, the sqlite-backed stores, the license
// service and activation workflow, the chi router, and the HTTP
// server's lifecycle.
//
// All construction happens in NewApplication; Run blocks until
// SIGINT/SIGTERM and then shuts the server, the database and the
// telemetry providers down in order.
package app
