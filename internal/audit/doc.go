// Package audit wires the perfgate audit command: it loads targets from configuration and
// an optional manifest, resolves per-target thresholds and YSlow options against global
// defaults, and drives the orchestrator through the PhantomJS runner.
//
// CommandBuilder assembles the Cobra command, Service runs an audit programmatically, and
// Resolve implements the target-then-global option precedence.
package audit
