// Package thresholds compares decoded audit metrics against resolved threshold sets.
package thresholds

import (
	"fmt"
	"strings"

	"github.com/temirov/perfgate/internal/model"
)

const (
	unsupportedPolicyTemplateConstant = "unsupported unresolved threshold policy: %s"
)

// UnresolvedPolicy decides how a metric without a configured threshold is evaluated.
type UnresolvedPolicy string

// Supported unresolved threshold policies.
const (
	// UnresolvedPolicySkip marks the metric skipped; it never fails the target.
	UnresolvedPolicySkip UnresolvedPolicy = "skip"
	// UnresolvedPolicyFail fails the metric, matching comparisons against an unset value.
	UnresolvedPolicyFail UnresolvedPolicy = "fail"
)

// UnresolvedPolicies lists the accepted policy values, default first.
func UnresolvedPolicies() []string {
	return []string{string(UnresolvedPolicySkip), string(UnresolvedPolicyFail)}
}

// ParseUnresolvedPolicy normalizes a configured policy value. Empty input selects skip.
func ParseUnresolvedPolicy(rawValue string) (UnresolvedPolicy, error) {
	normalizedValue := UnresolvedPolicy(strings.ToLower(strings.TrimSpace(rawValue)))
	switch normalizedValue {
	case "":
		return UnresolvedPolicySkip, nil
	case UnresolvedPolicySkip, UnresolvedPolicyFail:
		return normalizedValue, nil
	default:
		return "", fmt.Errorf(unsupportedPolicyTemplateConstant, rawValue)
	}
}

type comparison func(measured float64, threshold float64) bool

func atMost(measured float64, threshold float64) bool {
	return measured <= threshold
}

func atLeast(measured float64, threshold float64) bool {
	return measured >= threshold
}

// Evaluator applies inclusive boundary comparisons to each metric.
type Evaluator struct {
	policy UnresolvedPolicy
}

// NewEvaluator constructs an Evaluator; an unknown policy falls back to skip.
func NewEvaluator(policy UnresolvedPolicy) Evaluator {
	if policy != UnresolvedPolicyFail {
		policy = UnresolvedPolicySkip
	}
	return Evaluator{policy: policy}
}

// Evaluate compares the metrics against the thresholds in report order:
// requests, score, load time, weight.
func (evaluator Evaluator) Evaluate(metrics model.AuditMetrics, thresholdSet model.ThresholdSet) model.EvaluationOutcome {
	return model.EvaluationOutcome{
		Metrics: []model.MetricResult{
			evaluator.evaluateMetric(model.MetricRequests, float64(metrics.Requests), thresholdSet.Requests, atMost),
			evaluator.evaluateMetric(model.MetricScore, float64(metrics.Score), thresholdSet.Score, atLeast),
			evaluator.evaluateMetric(model.MetricLoadTime, float64(metrics.LoadTimeMs), thresholdSet.Speed, atMost),
			evaluator.evaluateMetric(model.MetricWeight, metrics.WeightKilobytes(), thresholdSet.Weight, atMost),
		},
	}
}

func (evaluator Evaluator) evaluateMetric(name model.MetricName, measured float64, threshold *float64, passes comparison) model.MetricResult {
	result := model.MetricResult{Name: name, Measured: measured, Threshold: threshold}
	switch {
	case threshold == nil && evaluator.policy == UnresolvedPolicyFail:
		result.Status = model.MetricStatusFailed
	case threshold == nil:
		result.Status = model.MetricStatusSkipped
	case passes(measured, *threshold):
		result.Status = model.MetricStatusPassed
	default:
		result.Status = model.MetricStatusFailed
	}
	return result
}
