// Package health provides liveness and readiness probe handlers that
// aggregate named dependency checks.
package health
