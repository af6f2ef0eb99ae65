// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate audit process lifecycle events into concise messages so
// that progress feedback stays readable for CLI users while detailed telemetry
// continues to flow through structured loggers.
package ui
