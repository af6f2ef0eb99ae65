package yslow

import (
	"context"
	"errors"
	"time"

	"github.com/temirov/perfgate/internal/execshell"
	"github.com/temirov/perfgate/internal/model"
)

const executorNotConfiguredMessageConstant = "yslow runner executor not configured"

// ErrExecutorNotConfigured indicates that the runner was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// PhantomExecutor runs a PhantomJS binary.
type PhantomExecutor interface {
	ExecutePhantomJS(executionContext context.Context, binaryPath string, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RawOutput is what one audit process produced, uninterpreted.
type RawOutput struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// RunnerConfiguration holds the settings shared by every audit process.
type RunnerConfiguration struct {
	BinaryPath       string
	WorkingDirectory string
	Invocation       Invocation
	Timeout          time.Duration
}

// Runner spawns one YSlow audit process per target.
type Runner struct {
	executor      PhantomExecutor
	configuration RunnerConfiguration
}

// NewRunner constructs a Runner.
func NewRunner(executor PhantomExecutor, configuration RunnerConfiguration) (*Runner, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Runner{executor: executor, configuration: configuration}, nil
}

// Run audits the target. A process that could not be spawned or was killed returns an error;
// a non-zero exit is returned as data.
func (runner *Runner) Run(executionContext context.Context, target model.ResolvedTarget) (RawOutput, error) {
	arguments, argumentsError := BuildArguments(target, runner.configuration.Invocation)
	if argumentsError != nil {
		return RawOutput{}, argumentsError
	}

	executionResult, executionError := runner.executor.ExecutePhantomJS(executionContext, runner.configuration.BinaryPath, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: runner.configuration.WorkingDirectory,
		Timeout:          runner.configuration.Timeout,
	})
	if executionError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(executionError, &failedError) {
			return rawOutputFrom(failedError.Result), nil
		}
		return RawOutput{}, executionError
	}
	return rawOutputFrom(executionResult), nil
}

func rawOutputFrom(executionResult execshell.ExecutionResult) RawOutput {
	return RawOutput{
		StandardOutput: executionResult.StandardOutput,
		StandardError:  executionResult.StandardError,
		ExitCode:       executionResult.ExitCode,
	}
}
