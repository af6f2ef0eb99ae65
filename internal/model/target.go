package model

// RunMode selects how audit results are reported.
type RunMode string

// Supported run modes.
const (
	RunModeInteractive RunMode = "interactive"
	RunModeMachine     RunMode = "machine"
)

// OptionNamespaces maps a namespace such as "thresholds" to its key/value settings.
type OptionNamespaces map[string]map[string]any

// Target is one audited page as declared in configuration.
type Target struct {
	Index     int
	Source    string
	Overrides OptionNamespaces
}

// ThresholdSet holds the boundaries a target's metrics must satisfy. A nil field is unresolved.
type ThresholdSet struct {
	Weight   *float64 `mapstructure:"weight"`
	Requests *float64 `mapstructure:"requests"`
	Score    *float64 `mapstructure:"score"`
	Speed    *float64 `mapstructure:"speed"`
}

// AuditOptions are forwarded to the YSlow script.
type AuditOptions struct {
	UserAgent string
	CDNs      []string
	Viewport  string
	Headers   map[string]string
}

// ResolvedTarget is a target whose URL, thresholds, and options are final.
type ResolvedTarget struct {
	Target
	URL        string
	Thresholds ThresholdSet
	Options    AuditOptions
}

// DisplayNumber is the one-based position used in human-facing output.
func (target ResolvedTarget) DisplayNumber() int {
	return target.Index + 1
}
