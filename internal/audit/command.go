package audit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/perfgate/internal/execshell"
	"github.com/temirov/perfgate/internal/orchestrator"
	"github.com/temirov/perfgate/internal/phantom"
	"github.com/temirov/perfgate/internal/thresholds"
	"github.com/temirov/perfgate/internal/ui"
	"github.com/temirov/perfgate/internal/utils"
	flagutils "github.com/temirov/perfgate/internal/utils/flags"
)

const (
	commandNameConstant                   = "audit"
	commandUsageConstant                  = "audit [source...]"
	commandShortDescriptionConstant       = "Audit page performance with YSlow"
	commandLongDescriptionConstant        = "audit runs the YSlow script through PhantomJS for every configured page, evaluates the reported metrics against thresholds, and prints a report or writes one report file per page in CI mode. Positional arguments add page sources relative to the base URL."
	baseURLFlagNameConstant               = "base-url"
	baseURLFlagDescriptionConstant        = "Prefix concatenated with every page source"
	targetsFlagNameConstant               = "targets"
	targetsFlagDescriptionConstant        = "Path to a YAML manifest listing additional pages"
	ciFlagNameConstant                    = "ci"
	ciFlagDescriptionConstant             = "Write one machine-readable report per page instead of printing results"
	formatFlagNameConstant                = "format"
	formatFlagDescriptionConstant         = "Report format passed to YSlow in CI mode (implies --ci); reports are named report<N>.xml for junit and xml, report<N>.<format> otherwise"
	reportPathFlagNameConstant            = "report-path"
	reportPathFlagDescriptionConstant     = "Directory receiving CI reports (implies --ci)"
	concurrencyFlagNameConstant           = "concurrency"
	concurrencyFlagDescriptionConstant    = "Maximum concurrent audits; 0 audits every page at once"
	timeoutFlagNameConstant               = "timeout"
	timeoutFlagDescriptionConstant        = "Per-page audit timeout; 0 disables it"
	failurePolicyFlagNameConstant         = "failure-policy"
	failurePolicyFlagDescriptionConstant  = "How unreadable audit output affects the run"
	unresolvedFlagNameConstant            = "unresolved-thresholds"
	unresolvedFlagDescriptionConstant     = "How metrics without a configured threshold are evaluated"
	summaryFlagNameConstant               = "summary"
	summaryFlagDescriptionConstant        = "Write a Markdown run summary to this path"
	commandExecutionErrorTemplateConstant = "audit failed: %w"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current audit configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the audit cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider func() bool
	CommandRunner                execshell.CommandRunner
	FileSystem                   phantom.FileSystem
	WorkingDirectory             string
	RunIdentifiers               func() string
}

// Build constructs the cobra command for page audits.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUsageConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(baseURLFlagNameConstant, "", baseURLFlagDescriptionConstant)
	command.Flags().String(targetsFlagNameConstant, "", targetsFlagDescriptionConstant)
	flagutils.AddToggleFlag(command.Flags(), nil, ciFlagNameConstant, false, ciFlagDescriptionConstant)
	command.Flags().String(formatFlagNameConstant, "", formatFlagDescriptionConstant)
	command.Flags().String(reportPathFlagNameConstant, "", reportPathFlagDescriptionConstant)
	command.Flags().Int(concurrencyFlagNameConstant, defaults.Options.Concurrency, concurrencyFlagDescriptionConstant)
	command.Flags().Duration(timeoutFlagNameConstant, defaults.Options.Timeout, timeoutFlagDescriptionConstant)
	command.Flags().String(
		failurePolicyFlagNameConstant,
		defaults.Options.FailurePolicy,
		flagutils.FormatChoiceUsage(defaults.Options.FailurePolicy, orchestrator.FailurePolicies(), failurePolicyFlagDescriptionConstant),
	)
	command.Flags().String(
		unresolvedFlagNameConstant,
		defaults.Options.UnresolvedThresholds,
		flagutils.FormatChoiceUsage(defaults.Options.UnresolvedThresholds, thresholds.UnresolvedPolicies(), unresolvedFlagDescriptionConstant),
	)
	command.Flags().String(summaryFlagNameConstant, "", summaryFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, optionsError := builder.parseConfiguration(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	dependencies := ServiceDependencies{
		Logger:           logger,
		Output:           utils.NewFlushingWriter(command.OutOrStdout()),
		CommandRunner:    builder.CommandRunner,
		FileSystem:       builder.FileSystem,
		WorkingDirectory: builder.WorkingDirectory,
		RunIdentifiers:   builder.RunIdentifiers,
	}
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		dependencies.CommandEventObserver = ui.NewConsoleCommandEventLogger(logger)
	}

	configurationDirectory := ""
	if configurationFilePath, found := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context()); found && len(configurationFilePath) > 0 {
		configurationDirectory = filepath.Dir(configurationFilePath)
	}

	_, runError := NewService(dependencies).Run(command.Context(), RunOptions{
		Configuration:          configuration,
		ConfigurationDirectory: configurationDirectory,
	})
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command, arguments []string) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	if flagSet.Changed(baseURLFlagNameConstant) {
		baseURL, flagError := flagSet.GetString(baseURLFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.BaseURL = baseURL
	}

	if flagSet.Changed(targetsFlagNameConstant) {
		targetsPath, flagError := flagSet.GetString(targetsFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Targets = targetsPath
	}

	if flagSet.Changed(formatFlagNameConstant) {
		format, flagError := flagSet.GetString(formatFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Options.CI = ensureCIConfiguration(configuration.Options.CI)
		configuration.Options.CI.Format = format
	}

	if flagSet.Changed(reportPathFlagNameConstant) {
		reportPath, flagError := flagSet.GetString(reportPathFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Options.CI = ensureCIConfiguration(configuration.Options.CI)
		configuration.Options.CI.ReportPath = reportPath
	}

	if flagSet.Changed(ciFlagNameConstant) {
		ciEnabled, flagError := flagSet.GetBool(ciFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		if ciEnabled {
			configuration.Options.CI = ensureCIConfiguration(configuration.Options.CI)
		} else {
			configuration.Options.CI = nil
		}
	}

	if flagSet.Changed(concurrencyFlagNameConstant) {
		concurrency, flagError := flagSet.GetInt(concurrencyFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Options.Concurrency = concurrency
	}

	if flagSet.Changed(timeoutFlagNameConstant) {
		timeout, flagError := flagSet.GetDuration(timeoutFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Options.Timeout = timeout
	}

	if flagSet.Changed(failurePolicyFlagNameConstant) {
		failurePolicy, flagError := flagSet.GetString(failurePolicyFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Options.FailurePolicy = failurePolicy
	}

	if flagSet.Changed(unresolvedFlagNameConstant) {
		unresolvedPolicy, flagError := flagSet.GetString(unresolvedFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Options.UnresolvedThresholds = unresolvedPolicy
	}

	if flagSet.Changed(summaryFlagNameConstant) {
		summaryPath, flagError := flagSet.GetString(summaryFlagNameConstant)
		if flagError != nil {
			return CommandConfiguration{}, flagError
		}
		configuration.Options.SummaryPath = summaryPath
	}

	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 {
			continue
		}
		configuration.Files = append(configuration.Files, FileConfiguration{Source: trimmedArgument})
	}

	return configuration, nil
}

func ensureCIConfiguration(ciConfiguration *CIConfiguration) *CIConfiguration {
	if ciConfiguration == nil {
		return &CIConfiguration{}
	}
	return ciConfiguration
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	configuration.Files = append([]FileConfiguration{}, configuration.Files...)
	if configuration.Options.CI != nil {
		ciConfiguration := *configuration.Options.CI
		configuration.Options.CI = &ciConfiguration
	}
	return configuration
}
