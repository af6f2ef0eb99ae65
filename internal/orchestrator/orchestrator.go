package orchestrator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/perfgate/internal/model"
	"github.com/temirov/perfgate/internal/report"
	"github.com/temirov/perfgate/internal/yslow"
)

const (
	logMessageRunStartedConstant         = "audit run started"
	logMessageRunCompletedConstant       = "audit run completed"
	logMessageRunAbortedConstant         = "audit run aborted"
	logMessageTargetCompletedConstant    = "audit target completed"
	logMessageDecodeFailedConstant       = "audit output could not be decoded"
	logMessageProcessFailedConstant      = "audit process failed"
	logMessageArtifactFailedConstant     = "audit report could not be written"
	logMessageReportFailedConstant       = "audit result could not be reported"
	logMessageThresholdFailedConstant    = "audit target exceeded thresholds"
	logFieldRunIdentifierConstant        = "run_id"
	logFieldModeConstant                 = "mode"
	logFieldTargetsConstant              = "targets"
	logFieldConcurrencyConstant          = "concurrency"
	logFieldPolicyConstant               = "failure_policy"
	logFieldSourceConstant               = "source"
	logFieldIndexConstant                = "index"
	logFieldURLConstant                  = "url"
	logFieldExitCodeConstant             = "exit_code"
	logFieldStandardErrorConstant        = "stderr"
	logFieldCompletedConstant            = "completed"
	logFieldFailedConstant               = "failed"
	logFieldArtifactConstant             = "artifact"
	reportStartErrorTemplateConstant     = "unable to start report: %w"
	reportTargetErrorTemplateConstant    = "unable to report %s: %w"
	processFailureDetailTemplateConstant = "audit process for %s failed: %w"
)

// AuditRunner runs the external audit for one target.
type AuditRunner interface {
	Run(executionContext context.Context, target model.ResolvedTarget) (yslow.RawOutput, error)
}

// Reporter renders per-target results.
type Reporter interface {
	Start(totalTargets int) error
	ReportEvaluation(target model.ResolvedTarget, metrics model.AuditMetrics, outcome model.EvaluationOutcome) error
	ReportArtifact(target model.ResolvedTarget, artifactPath string) error
}

// Evaluator compares metrics with thresholds.
type Evaluator interface {
	Evaluate(metrics model.AuditMetrics, thresholdSet model.ThresholdSet) model.EvaluationOutcome
}

// ArtifactStore persists raw machine reports.
type ArtifactStore interface {
	Write(target model.ResolvedTarget, standardOutput string) (string, error)
}

// Configuration holds run-wide orchestration settings.
type Configuration struct {
	Mode          model.RunMode
	Concurrency   int
	FailurePolicy FailurePolicy
}

// Dependencies groups the collaborators of an Orchestrator.
type Dependencies struct {
	Logger         *zap.Logger
	Runner         AuditRunner
	Reporter       Reporter
	Evaluator      Evaluator
	Artifacts      ArtifactStore
	RunIdentifiers func() string
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID          string
	Mode           model.RunMode
	State          RunState
	TotalTargets   int
	CompletedCount int
	Failed         bool
	Outcomes       []model.TargetOutcome
}

// Digest converts the summary into report input, ordered by target index.
func (summary RunSummary) Digest() report.RunDigest {
	orderedOutcomes := slices.Clone(summary.Outcomes)
	slices.SortFunc(orderedOutcomes, func(left model.TargetOutcome, right model.TargetOutcome) int {
		return cmp.Compare(left.Target.Index, right.Target.Index)
	})
	return report.RunDigest{
		RunID:        summary.RunID,
		Mode:         summary.Mode,
		TotalTargets: summary.TotalTargets,
		Failed:       summary.Failed,
		Outcomes:     orderedOutcomes,
	}
}

// Orchestrator coordinates one audit run.
type Orchestrator struct {
	logger         *zap.Logger
	runner         AuditRunner
	reporter       Reporter
	evaluator      Evaluator
	artifacts      ArtifactStore
	runIdentifiers func() string
	configuration  Configuration
}

type completion struct {
	target model.ResolvedTarget
	output yslow.RawOutput
	err    error
}

// New validates dependencies and constructs an Orchestrator.
func New(dependencies Dependencies, configuration Configuration) (*Orchestrator, error) {
	if dependencies.Runner == nil {
		return nil, ErrRunnerNotConfigured
	}
	if dependencies.Reporter == nil {
		return nil, ErrReporterNotConfigured
	}
	switch configuration.Mode {
	case model.RunModeInteractive:
		if dependencies.Evaluator == nil {
			return nil, ErrEvaluatorNotConfigured
		}
	case model.RunModeMachine:
		if dependencies.Artifacts == nil {
			return nil, ErrArtifactsNotConfigured
		}
	default:
		return nil, fmt.Errorf(unsupportedRunModeTemplateConstant, configuration.Mode)
	}
	if configuration.Concurrency < 0 {
		return nil, fmt.Errorf(negativeConcurrencyTemplateConstant, configuration.Concurrency)
	}
	if len(configuration.FailurePolicy) == 0 {
		configuration.FailurePolicy = FailurePolicyFailFast
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runIdentifiers := dependencies.RunIdentifiers
	if runIdentifiers == nil {
		runIdentifiers = uuid.NewString
	}

	return &Orchestrator{
		logger:         logger,
		runner:         dependencies.Runner,
		reporter:       dependencies.Reporter,
		evaluator:      dependencies.Evaluator,
		artifacts:      dependencies.Artifacts,
		runIdentifiers: runIdentifiers,
		configuration:  configuration,
	}, nil
}

// Run audits every target and finalizes once, either at the completion barrier or on abort.
func (orchestrator *Orchestrator) Run(executionContext context.Context, targets []model.ResolvedTarget) (RunSummary, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	summary := RunSummary{
		RunID:        orchestrator.runIdentifiers(),
		Mode:         orchestrator.configuration.Mode,
		State:        RunStateIdle,
		TotalTargets: len(targets),
	}
	runLogger := orchestrator.logger.With(zap.String(logFieldRunIdentifierConstant, summary.RunID))

	if startError := orchestrator.reporter.Start(len(targets)); startError != nil {
		summary.State = RunStateAborted
		summary.Failed = true
		return summary, fmt.Errorf(reportStartErrorTemplateConstant, startError)
	}

	concurrency := orchestrator.configuration.Concurrency
	if concurrency == 0 {
		concurrency = len(targets)
	}
	summary.State = RunStateRunning
	runLogger.Info(
		logMessageRunStartedConstant,
		zap.String(logFieldModeConstant, string(summary.Mode)),
		zap.Int(logFieldTargetsConstant, len(targets)),
		zap.Int(logFieldConcurrencyConstant, concurrency),
		zap.String(logFieldPolicyConstant, string(orchestrator.configuration.FailurePolicy)),
	)

	if len(targets) == 0 {
		summary.State = RunStateCompleted
		runLogger.Info(logMessageRunCompletedConstant, zap.Int(logFieldCompletedConstant, 0), zap.Bool(logFieldFailedConstant, false))
		return summary, nil
	}

	runContext, cancelRun := context.WithCancel(executionContext)
	defer cancelRun()

	completions := make(chan completion, len(targets))
	dispatchDone := make(chan struct{})
	go orchestrator.dispatch(runContext, targets, concurrency, completions, dispatchDone)

	abort := func(cause error) (RunSummary, error) {
		cancelRun()
		<-dispatchDone
		summary.State = RunStateAborted
		summary.Failed = true
		runLogger.Error(logMessageRunAbortedConstant, zap.Int(logFieldCompletedConstant, summary.CompletedCount), zap.Error(cause))
		return summary, cause
	}

	var runErrors []error
	var violatingSources []string
	for received := 0; received < len(targets); received++ {
		var finished completion
		select {
		case finished = <-completions:
		case <-executionContext.Done():
			return abort(executionContext.Err())
		}
		if executionContext.Err() != nil {
			return abort(executionContext.Err())
		}

		summary.CompletedCount++
		outcome, fatalError := orchestrator.finalizeTarget(runLogger, finished)
		summary.Outcomes = append(summary.Outcomes, outcome)

		if fatalError != nil {
			if orchestrator.configuration.FailurePolicy == FailurePolicyFailFast {
				return abort(fatalError)
			}
			runErrors = append(runErrors, fatalError)
			continue
		}
		if outcome.Err != nil {
			runErrors = append(runErrors, outcome.Err)
		}
		if outcome.Evaluation != nil && outcome.Evaluation.AnyFailed() {
			violatingSources = append(violatingSources, outcome.Target.Source)
		}
	}
	<-dispatchDone

	if len(violatingSources) > 0 {
		runErrors = append(runErrors, &ThresholdViolationError{Sources: violatingSources})
	}
	summary.State = RunStateCompleted
	summary.Failed = len(runErrors) > 0
	runLogger.Info(
		logMessageRunCompletedConstant,
		zap.Int(logFieldCompletedConstant, summary.CompletedCount),
		zap.Bool(logFieldFailedConstant, summary.Failed),
	)
	return summary, errors.Join(runErrors...)
}

// dispatch submits one audit per target, bounded by concurrency, and closes dispatchDone once
// every submitted audit has returned.
func (orchestrator *Orchestrator) dispatch(runContext context.Context, targets []model.ResolvedTarget, concurrency int, completions chan<- completion, dispatchDone chan<- struct{}) {
	defer close(dispatchDone)

	group, groupContext := errgroup.WithContext(runContext)
	group.SetLimit(concurrency)
	for _, target := range targets {
		if groupContext.Err() != nil {
			completions <- completion{target: target, err: groupContext.Err()}
			continue
		}
		group.Go(func() error {
			if groupContext.Err() != nil {
				completions <- completion{target: target, err: groupContext.Err()}
				return nil
			}
			output, runError := orchestrator.runner.Run(groupContext, target)
			completions <- completion{target: target, output: output, err: runError}
			return nil
		})
	}
	_ = group.Wait()
}

// finalizeTarget handles one completion. The returned error is non-nil only for decode failures.
func (orchestrator *Orchestrator) finalizeTarget(runLogger *zap.Logger, finished completion) (model.TargetOutcome, error) {
	target := finished.target
	targetLogger := runLogger.With(
		zap.String(logFieldSourceConstant, target.Source),
		zap.Int(logFieldIndexConstant, target.Index),
	)
	outcome := model.TargetOutcome{Target: target}

	if orchestrator.configuration.Mode == model.RunModeMachine {
		return orchestrator.collectArtifact(targetLogger, finished, outcome), nil
	}

	if finished.err != nil {
		decodeError := yslow.NewDecodeError(target.Source, finished.output.StandardOutput, fmt.Errorf(processFailureDetailTemplateConstant, target.URL, finished.err))
		targetLogger.Error(logMessageProcessFailedConstant, zap.String(logFieldURLConstant, target.URL), zap.Error(finished.err))
		outcome.Err = decodeError
		return outcome, decodeError
	}

	metrics, parseError := yslow.ParseMetrics(finished.output.StandardOutput)
	if parseError != nil {
		var decodeError *yslow.DecodeError
		if errors.As(parseError, &decodeError) {
			decodeError.Source = target.Source
		}
		targetLogger.Error(
			logMessageDecodeFailedConstant,
			zap.Int(logFieldExitCodeConstant, finished.output.ExitCode),
			zap.String(logFieldStandardErrorConstant, finished.output.StandardError),
			zap.Error(parseError),
		)
		outcome.Err = parseError
		return outcome, parseError
	}

	evaluation := orchestrator.evaluator.Evaluate(metrics, target.Thresholds)
	outcome.Metrics = &metrics
	outcome.Evaluation = &evaluation

	if reportError := orchestrator.reporter.ReportEvaluation(target, metrics, evaluation); reportError != nil {
		targetLogger.Error(logMessageReportFailedConstant, zap.Error(reportError))
		outcome.Err = fmt.Errorf(reportTargetErrorTemplateConstant, target.Source, reportError)
	}
	if evaluation.AnyFailed() {
		targetLogger.Warn(logMessageThresholdFailedConstant)
	} else {
		targetLogger.Debug(logMessageTargetCompletedConstant)
	}
	return outcome, nil
}

func (orchestrator *Orchestrator) collectArtifact(targetLogger *zap.Logger, finished completion, outcome model.TargetOutcome) model.TargetOutcome {
	target := finished.target
	if finished.err != nil {
		targetLogger.Error(logMessageProcessFailedConstant, zap.String(logFieldURLConstant, target.URL), zap.Error(finished.err))
	}

	artifactPath, writeError := orchestrator.artifacts.Write(target, finished.output.StandardOutput)
	if writeError != nil {
		targetLogger.Error(logMessageArtifactFailedConstant, zap.Error(writeError))
		outcome.Err = writeError
		return outcome
	}
	outcome.ArtifactPath = artifactPath

	if reportError := orchestrator.reporter.ReportArtifact(target, artifactPath); reportError != nil {
		targetLogger.Error(logMessageReportFailedConstant, zap.Error(reportError))
		outcome.Err = fmt.Errorf(reportTargetErrorTemplateConstant, target.Source, reportError)
		return outcome
	}
	targetLogger.Debug(logMessageTargetCompletedConstant, zap.String(logFieldArtifactConstant, artifactPath))
	return outcome
}
