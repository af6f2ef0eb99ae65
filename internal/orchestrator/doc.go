// Package orchestrator runs one audit per resolved target with bounded concurrency and
// funnels every completion through a single coordinator that parses, evaluates, reports,
// and finalizes the run exactly once.
package orchestrator
