// Package logger provides slog-based structured logging with per-request
// context attribute extraction and optional Sentry fan-out.
package logger
