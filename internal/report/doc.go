// Package report renders audit results: a colored console table per target in interactive
// mode, raw report artifacts in machine mode, and an optional Markdown run summary.
package report
