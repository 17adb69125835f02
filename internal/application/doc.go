// Package application provides application initialization and dependency wiring.
// It builds the clock, the outbound HTTP client, the API handlers and router,
// and the HTTP server, keeping the main package focused on CLI parsing and
// process lifecycle.
package application
