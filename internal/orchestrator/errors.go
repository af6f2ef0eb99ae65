package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

const (
	thresholdViolationTemplateConstant    = "Threshold limit exhausted while testing %s."
	runnerNotConfiguredMessageConstant    = "orchestrator audit runner not configured"
	reporterNotConfiguredMessageConstant  = "orchestrator reporter not configured"
	evaluatorNotConfiguredMessageConstant = "orchestrator evaluator not configured"
	artifactsNotConfiguredMessageConstant = "orchestrator artifact store not configured for machine mode"
	unsupportedRunModeTemplateConstant    = "unsupported run mode: %s"
	negativeConcurrencyTemplateConstant   = "concurrency must not be negative: %d"
)

var (
	// ErrRunnerNotConfigured indicates a missing audit runner.
	ErrRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
	// ErrReporterNotConfigured indicates a missing reporter.
	ErrReporterNotConfigured = errors.New(reporterNotConfiguredMessageConstant)
	// ErrEvaluatorNotConfigured indicates a missing threshold evaluator in interactive mode.
	ErrEvaluatorNotConfigured = errors.New(evaluatorNotConfiguredMessageConstant)
	// ErrArtifactsNotConfigured indicates a missing artifact store in machine mode.
	ErrArtifactsNotConfigured = errors.New(artifactsNotConfiguredMessageConstant)
)

// ThresholdViolationError lists the targets that exceeded at least one threshold.
type ThresholdViolationError struct {
	Sources []string
}

// Error renders one line per failing target.
func (violation *ThresholdViolationError) Error() string {
	lines := make([]string, 0, len(violation.Sources))
	for _, source := range violation.Sources {
		lines = append(lines, fmt.Sprintf(thresholdViolationTemplateConstant, source))
	}
	return strings.Join(lines, "\n")
}
