package orchestrator

import (
	"fmt"
	"strings"
)

// FailurePolicy decides how decode failures affect the rest of the run.
type FailurePolicy string

// Supported failure policies.
const (
	// FailurePolicyFailFast aborts the run on the first decode failure.
	FailurePolicyFailFast FailurePolicy = "fail-fast"
	// FailurePolicyCollectAll records decode failures per target and fails the run at the completion barrier.
	FailurePolicyCollectAll FailurePolicy = "collect-all"
)

const unsupportedFailurePolicyTemplateConstant = "unsupported failure policy: %s"

// FailurePolicies lists the accepted policy names.
func FailurePolicies() []string {
	return []string{string(FailurePolicyFailFast), string(FailurePolicyCollectAll)}
}

// ParseFailurePolicy converts a configured value into a FailurePolicy. Empty selects fail-fast.
func ParseFailurePolicy(raw string) (FailurePolicy, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "", string(FailurePolicyFailFast):
		return FailurePolicyFailFast, nil
	case string(FailurePolicyCollectAll):
		return FailurePolicyCollectAll, nil
	default:
		return "", fmt.Errorf(unsupportedFailurePolicyTemplateConstant, raw)
	}
}

// RunState is the lifecycle state of a run.
type RunState string

// Run lifecycle states.
const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateAborted   RunState = "aborted"
)

// Terminal reports whether no further transitions are possible.
func (state RunState) Terminal() bool {
	return state == RunStateCompleted || state == RunStateAborted
}
