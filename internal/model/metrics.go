package model

const weightBytesPerKilobyteConstant = 1000.0

// AuditMetrics is the decoded YSlow result for one target.
type AuditMetrics struct {
	Requests    int `json:"r"`
	Score       int `json:"o"`
	LoadTimeMs  int `json:"lt"`
	WeightBytes int `json:"w"`
}

// WeightKilobytes converts the page weight to decimal kilobytes.
func (metrics AuditMetrics) WeightKilobytes() float64 {
	return float64(metrics.WeightBytes) / weightBytesPerKilobyteConstant
}

// MetricName identifies an evaluated metric.
type MetricName string

// Evaluated metrics in report order.
const (
	MetricRequests MetricName = "requests"
	MetricScore    MetricName = "score"
	MetricLoadTime MetricName = "speed"
	MetricWeight   MetricName = "weight"
)

// MetricStatus is the outcome of comparing one metric against its threshold.
type MetricStatus string

// Metric statuses.
const (
	MetricStatusPassed  MetricStatus = "passed"
	MetricStatusFailed  MetricStatus = "failed"
	MetricStatusSkipped MetricStatus = "skipped"
)

// MetricResult records one comparison.
type MetricResult struct {
	Name      MetricName
	Measured  float64
	Threshold *float64
	Status    MetricStatus
}

// EvaluationOutcome holds the four metric results of one target, in report order.
type EvaluationOutcome struct {
	Metrics []MetricResult
}

// AnyFailed reports whether at least one metric failed.
func (outcome EvaluationOutcome) AnyFailed() bool {
	for _, metric := range outcome.Metrics {
		if metric.Status == MetricStatusFailed {
			return true
		}
	}
	return false
}

// Metric returns the result for the named metric.
func (outcome EvaluationOutcome) Metric(name MetricName) (MetricResult, bool) {
	for _, metric := range outcome.Metrics {
		if metric.Name == name {
			return metric, true
		}
	}
	return MetricResult{}, false
}

// TargetOutcome records what happened to one target during a run.
type TargetOutcome struct {
	Target       ResolvedTarget
	Metrics      *AuditMetrics
	Evaluation   *EvaluationOutcome
	ArtifactPath string
	Err          error
}

// Failed reports whether the target errored or violated a threshold.
func (outcome TargetOutcome) Failed() bool {
	if outcome.Err != nil {
		return true
	}
	return outcome.Evaluation != nil && outcome.Evaluation.AnyFailed()
}
