package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/perfgate/internal/execshell"
	"github.com/temirov/perfgate/internal/model"
	"github.com/temirov/perfgate/internal/orchestrator"
	"github.com/temirov/perfgate/internal/phantom"
	"github.com/temirov/perfgate/internal/report"
	"github.com/temirov/perfgate/internal/thresholds"
	"github.com/temirov/perfgate/internal/yslow"
)

const (
	logMessageTargetsResolvedConstant     = "audit targets resolved"
	logMessageSummaryWrittenConstant      = "audit summary written"
	logMessageBinarySelectedConstant      = "phantomjs binary selected"
	logFieldStrategyConstant              = "strategy"
	logFieldTargetCountConstant           = "target_count"
	logFieldModeConstant                  = "mode"
	logFieldBinaryConstant                = "binary"
	logFieldPathConstant                  = "path"
	failurePolicyErrorTemplateConstant    = "invalid failure policy: %w"
	unresolvedPolicyErrorTemplateConstant = "invalid unresolved threshold policy: %w"
)

// ServiceDependencies groups the collaborators of an audit Service.
type ServiceDependencies struct {
	Logger               *zap.Logger
	Output               io.Writer
	CommandRunner        execshell.CommandRunner
	CommandEventObserver execshell.CommandEventObserver
	FileSystem           phantom.FileSystem
	WorkingDirectory     string
	RunIdentifiers       func() string
}

// RunOptions describes one audit run.
type RunOptions struct {
	Configuration          CommandConfiguration
	ConfigurationDirectory string
}

// Service resolves targets and drives an audit run.
type Service struct {
	dependencies ServiceDependencies
}

// NewService constructs a Service, filling unset dependencies with operating system defaults.
func NewService(dependencies ServiceDependencies) *Service {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.CommandRunner == nil {
		dependencies.CommandRunner = execshell.NewOSCommandRunner()
	}
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = phantom.OSFileSystem{}
	}
	if len(dependencies.WorkingDirectory) == 0 {
		if workingDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
			dependencies.WorkingDirectory = workingDirectory
		}
	}
	return &Service{dependencies: dependencies}
}

// Run audits every configured target and returns the run summary.
func (service *Service) Run(executionContext context.Context, options RunOptions) (orchestrator.RunSummary, error) {
	configuration := options.Configuration.sanitize()
	logger := service.dependencies.Logger

	failurePolicy, failurePolicyError := orchestrator.ParseFailurePolicy(configuration.Options.FailurePolicy)
	if failurePolicyError != nil {
		return orchestrator.RunSummary{}, fmt.Errorf(failurePolicyErrorTemplateConstant, failurePolicyError)
	}
	unresolvedPolicy, unresolvedPolicyError := thresholds.ParseUnresolvedPolicy(configuration.Options.UnresolvedThresholds)
	if unresolvedPolicyError != nil {
		return orchestrator.RunSummary{}, fmt.Errorf(unresolvedPolicyErrorTemplateConstant, unresolvedPolicyError)
	}

	resolvedTargets, resolveError := service.resolveTargets(configuration, options.ConfigurationDirectory)
	if resolveError != nil {
		return orchestrator.RunSummary{}, resolveError
	}

	runMode := model.RunModeInteractive
	reportFormat := ""
	var artifactStore orchestrator.ArtifactStore
	if configuration.Options.CI != nil {
		runMode = model.RunModeMachine
		reportFormat = configuration.Options.CI.Format
		artifactWriter, artifactWriterError := report.NewArtifactWriter(configuration.Options.CI.ReportPath, reportFormat)
		if artifactWriterError != nil {
			return orchestrator.RunSummary{}, artifactWriterError
		}
		artifactStore = artifactWriter
	}
	logger.Info(
		logMessageTargetsResolvedConstant,
		zap.Int(logFieldTargetCountConstant, len(resolvedTargets)),
		zap.String(logFieldModeConstant, string(runMode)),
	)

	locatedBinary := phantom.NewDefaultDiscovery(logger, service.dependencies.FileSystem, phantom.DiscoveryConfiguration{
		ConfiguredBinary: configuration.PhantomJS.Binary,
		WorkingDirectory: service.dependencies.WorkingDirectory,
		ScriptPath:       configuration.PhantomJS.Script,
	}).Locate()
	logger.Debug(logMessageBinarySelectedConstant, zap.String(logFieldBinaryConstant, locatedBinary.Path), zap.String(logFieldStrategyConstant, locatedBinary.Strategy))

	shellExecutor, executorError := execshell.NewShellExecutor(
		logger,
		service.dependencies.CommandRunner,
		execshell.WithCommandEventObserver(service.dependencies.CommandEventObserver),
	)
	if executorError != nil {
		return orchestrator.RunSummary{}, executorError
	}

	auditRunner, runnerError := yslow.NewRunner(shellExecutor, yslow.RunnerConfiguration{
		BinaryPath:       locatedBinary.Path,
		WorkingDirectory: service.dependencies.WorkingDirectory,
		Invocation: yslow.Invocation{
			Mode:       runMode,
			Format:     reportFormat,
			ScriptPath: configuration.PhantomJS.Script,
		},
		Timeout: configuration.Options.Timeout,
	})
	if runnerError != nil {
		return orchestrator.RunSummary{}, runnerError
	}

	runOrchestrator, orchestratorError := orchestrator.New(orchestrator.Dependencies{
		Logger:         logger,
		Runner:         auditRunner,
		Reporter:       report.NewConsoleReporter(service.dependencies.Output),
		Evaluator:      thresholds.NewEvaluator(unresolvedPolicy),
		Artifacts:      artifactStore,
		RunIdentifiers: service.dependencies.RunIdentifiers,
	}, orchestrator.Configuration{
		Mode:          runMode,
		Concurrency:   configuration.Options.Concurrency,
		FailurePolicy: failurePolicy,
	})
	if orchestratorError != nil {
		return orchestrator.RunSummary{}, orchestratorError
	}

	summary, runError := runOrchestrator.Run(executionContext, resolvedTargets)

	if len(configuration.Options.SummaryPath) > 0 {
		if summaryError := report.WriteSummaryFile(configuration.Options.SummaryPath, summary.Digest()); summaryError != nil {
			return summary, errors.Join(runError, summaryError)
		}
		logger.Info(logMessageSummaryWrittenConstant, zap.String(logFieldPathConstant, configuration.Options.SummaryPath))
	}

	return summary, runError
}

func (service *Service) resolveTargets(configuration CommandConfiguration, configurationDirectory string) ([]model.ResolvedTarget, error) {
	files := append([]FileConfiguration{}, configuration.Files...)
	baseURL := configuration.BaseURL

	if len(configuration.Targets) > 0 {
		manifestDirectory := configurationDirectory
		if len(manifestDirectory) == 0 {
			manifestDirectory = service.dependencies.WorkingDirectory
		}
		manifest, manifestError := LoadTargetManifest(configuration.Targets, manifestDirectory)
		if manifestError != nil {
			return nil, manifestError
		}
		files = append(files, manifest.Files...)
		if len(baseURL) == 0 {
			baseURL = manifest.BaseURL
		}
	}

	targets, targetsError := BuildTargets(files)
	if targetsError != nil {
		return nil, targetsError
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	return NewTargetResolver(service.dependencies.Logger, baseURL, configuration.Options.GlobalDefaults()).ResolveAll(targets)
}
