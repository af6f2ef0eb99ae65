package audit

import (
	"strings"
	"time"

	"github.com/temirov/perfgate/internal/orchestrator"
	"github.com/temirov/perfgate/internal/thresholds"
	"github.com/temirov/perfgate/internal/yslow"
)

const (
	defaultScriptPathConstant = "node_modules/grunt-yslow/tasks/lib/yslow.js"
	defaultTimeoutConstant    = 2 * time.Minute

	configurationBaseURLKeyConstant          = "baseUrl"
	configurationTargetsKeyConstant          = "targets"
	configurationTimeoutKeyConstant          = "options.timeout"
	configurationConcurrencyKeyConstant      = "options.concurrency"
	configurationFailurePolicyKeyConstant    = "options.failurePolicy"
	configurationUnresolvedPolicyKeyConstant = "options.unresolvedThresholds"
	configurationScriptKeyConstant           = "phantomjs.script"
	configurationCIKeyConstant               = "options.ci"
	configurationKeySeparatorConstant        = "."
)

// CommandConfiguration captures persistent settings for the audit command.
type CommandConfiguration struct {
	BaseURL   string                 `mapstructure:"baseUrl"`
	Targets   string                 `mapstructure:"targets"`
	Files     []FileConfiguration    `mapstructure:"files"`
	Options   OptionsConfiguration   `mapstructure:"options"`
	PhantomJS PhantomJSConfiguration `mapstructure:"phantomjs"`
}

// FileConfiguration declares one audited page. Source accepts a string or a list whose first entry is used.
type FileConfiguration struct {
	Source       any            `mapstructure:"src" yaml:"src"`
	Thresholds   map[string]any `mapstructure:"thresholds" yaml:"thresholds"`
	YSlowOptions map[string]any `mapstructure:"yslowOptions" yaml:"yslowOptions"`
}

// OptionsConfiguration holds run-wide defaults and orchestration settings.
type OptionsConfiguration struct {
	Thresholds           map[string]any   `mapstructure:"thresholds"`
	YSlowOptions         map[string]any   `mapstructure:"yslowOptions"`
	CI                   *CIConfiguration `mapstructure:"ci"`
	Concurrency          int              `mapstructure:"concurrency"`
	Timeout              time.Duration    `mapstructure:"timeout"`
	FailurePolicy        string           `mapstructure:"failurePolicy"`
	UnresolvedThresholds string           `mapstructure:"unresolvedThresholds"`
	SummaryPath          string           `mapstructure:"summaryPath"`
}

// CIConfiguration selects machine mode when present.
type CIConfiguration struct {
	Format     string `mapstructure:"format"`
	ReportPath string `mapstructure:"reportPath"`
}

// PhantomJSConfiguration locates the PhantomJS binary and the YSlow script.
type PhantomJSConfiguration struct {
	Binary string `mapstructure:"binary"`
	Script string `mapstructure:"script"`
}

// DefaultCommandConfiguration returns baseline configuration values for the audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Options: OptionsConfiguration{
			Timeout:              defaultTimeoutConstant,
			FailurePolicy:        string(orchestrator.FailurePolicyFailFast),
			UnresolvedThresholds: string(thresholds.UnresolvedPolicySkip),
		},
		PhantomJS: PhantomJSConfiguration{Script: defaultScriptPathConstant},
	}
}

// DefaultConfigurationValues exposes defaults keyed under configurationPrefix for the configuration loader.
// The ci block has no defaults because its presence selects machine mode.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefixedKey(configurationPrefix, configurationBaseURLKeyConstant):          defaults.BaseURL,
		prefixedKey(configurationPrefix, configurationTargetsKeyConstant):          defaults.Targets,
		prefixedKey(configurationPrefix, configurationTimeoutKeyConstant):          defaults.Options.Timeout.String(),
		prefixedKey(configurationPrefix, configurationConcurrencyKeyConstant):      defaults.Options.Concurrency,
		prefixedKey(configurationPrefix, configurationFailurePolicyKeyConstant):    defaults.Options.FailurePolicy,
		prefixedKey(configurationPrefix, configurationUnresolvedPolicyKeyConstant): defaults.Options.UnresolvedThresholds,
		prefixedKey(configurationPrefix, configurationScriptKeyConstant):           defaults.PhantomJS.Script,
	}
}

// CIConfigurationKey returns the configuration key whose presence selects machine mode.
func CIConfigurationKey(configurationPrefix string) string {
	return prefixedKey(configurationPrefix, configurationCIKeyConstant)
}

// ApplyCIPresence enables machine mode for a ci block that was present but empty.
func (configuration CommandConfiguration) ApplyCIPresence(present bool) CommandConfiguration {
	if present && configuration.Options.CI == nil {
		configuration.Options.CI = &CIConfiguration{}
	}
	return configuration
}

func prefixedKey(configurationPrefix string, key string) string {
	trimmedPrefix := strings.TrimSpace(configurationPrefix)
	if len(trimmedPrefix) == 0 {
		return key
	}
	return trimmedPrefix + configurationKeySeparatorConstant + key
}

// sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.BaseURL = strings.TrimSpace(configuration.BaseURL)
	sanitized.Targets = strings.TrimSpace(configuration.Targets)
	sanitized.Options.FailurePolicy = strings.TrimSpace(configuration.Options.FailurePolicy)
	sanitized.Options.UnresolvedThresholds = strings.TrimSpace(configuration.Options.UnresolvedThresholds)
	sanitized.Options.SummaryPath = strings.TrimSpace(configuration.Options.SummaryPath)
	sanitized.PhantomJS.Binary = strings.TrimSpace(configuration.PhantomJS.Binary)
	sanitized.PhantomJS.Script = strings.TrimSpace(configuration.PhantomJS.Script)
	if len(sanitized.PhantomJS.Script) == 0 {
		sanitized.PhantomJS.Script = defaultScriptPathConstant
	}
	if sanitized.Options.Timeout < 0 {
		sanitized.Options.Timeout = 0
	}
	if sanitized.Options.CI != nil {
		ciConfiguration := *sanitized.Options.CI
		ciConfiguration.Format = strings.TrimSpace(ciConfiguration.Format)
		if len(ciConfiguration.Format) == 0 {
			ciConfiguration.Format = yslow.DefaultReportFormat
		}
		ciConfiguration.ReportPath = strings.TrimSpace(ciConfiguration.ReportPath)
		sanitized.Options.CI = &ciConfiguration
	}
	return sanitized
}
