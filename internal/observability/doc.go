// Package observability provides structured logging for the pathway API.
//
// Loggers are zap-based. Entries written through the context logger carry
// the caller's user, org and tenant ids when an auth context is installed.
package observability
