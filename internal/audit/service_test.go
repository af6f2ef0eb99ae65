package audit_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/perfgate/internal/audit"
	"github.com/temirov/perfgate/internal/execshell"
	"github.com/temirov/perfgate/internal/orchestrator"
)

const (
	serviceBaseURLConstant     = "http://example.com/"
	serviceRunIDConstant       = "service-run"
	servicePassingJSONConstant = `{"r":40,"o":85,"lt":1500,"w":300000}`
	serviceFailingJSONConstant = `{"r":60,"o":85,"lt":1500,"w":300000}`
	serviceJUnitReportContent  = "<testsuites><testsuite name=\"yslow\"/></testsuites>"
)

type urlCommandRunner struct {
	mutex    sync.Mutex
	outputs  map[string]execshell.ExecutionResult
	commands []execshell.ShellCommand
}

func (runner *urlCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	runner.commands = append(runner.commands, command)
	targetURL := command.Details.Arguments[len(command.Details.Arguments)-1]
	result, found := runner.outputs[targetURL]
	if !found {
		return execshell.ExecutionResult{}, fmt.Errorf("unexpected url %s", targetURL)
	}
	return result, nil
}

func scenarioConfiguration() audit.CommandConfiguration {
	configuration := audit.DefaultCommandConfiguration()
	configuration.BaseURL = serviceBaseURLConstant
	configuration.Files = []audit.FileConfiguration{{Source: "a.html"}, {Source: []any{"b.html"}}}
	configuration.Options.Thresholds = map[string]any{"requests": 50, "score": 80, "speed": 2000, "weight": 500}
	return configuration
}

func newTestService(runner execshell.CommandRunner, output *bytes.Buffer, workingDirectory string) *audit.Service {
	return audit.NewService(audit.ServiceDependencies{
		Logger:           zap.NewNop(),
		Output:           output,
		CommandRunner:    runner,
		WorkingDirectory: workingDirectory,
		RunIdentifiers:   func() string { return serviceRunIDConstant },
	})
}

func TestServiceRunInteractiveScenario(testInstance *testing.T) {
	runner := &urlCommandRunner{outputs: map[string]execshell.ExecutionResult{
		serviceBaseURLConstant + "a.html": {StandardOutput: servicePassingJSONConstant},
		serviceBaseURLConstant + "b.html": {StandardOutput: serviceFailingJSONConstant},
	}}
	outputBuffer := &bytes.Buffer{}
	service := newTestService(runner, outputBuffer, testInstance.TempDir())

	summary, runError := service.Run(context.Background(), audit.RunOptions{Configuration: scenarioConfiguration()})

	var violationError *orchestrator.ThresholdViolationError
	require.ErrorAs(testInstance, runError, &violationError)
	require.Equal(testInstance, []string{"b.html"}, violationError.Sources)
	require.Equal(testInstance, orchestrator.RunStateCompleted, summary.State)
	require.Equal(testInstance, 2, summary.CompletedCount)
	require.Contains(testInstance, outputBuffer.String(), "Testing 2 URLs, this might take a few moments...")
	require.Contains(testInstance, outputBuffer.String(), "Test 1: a.html")
	require.Contains(testInstance, outputBuffer.String(), "Test 2: b.html")
	require.Contains(testInstance, outputBuffer.String(), "[FAIL] threshold is 50 requests")

	require.Len(testInstance, runner.commands, 2)
	for _, command := range runner.commands {
		require.Equal(testInstance, execshell.CommandPhantomJS, command.Name)
		require.Equal(testInstance, 2*time.Minute, command.Details.Timeout)
		require.Contains(testInstance, command.Details.Arguments, "basic")
	}
}

func TestServiceRunMachineModeWritesReportsAndSummary(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	reportDirectory := filepath.Join(workingDirectory, "reports")
	summaryPath := filepath.Join(workingDirectory, "summary.md")

	runner := &urlCommandRunner{outputs: map[string]execshell.ExecutionResult{
		serviceBaseURLConstant + "a.html": {StandardOutput: serviceJUnitReportContent},
		serviceBaseURLConstant + "b.html": {StandardOutput: serviceJUnitReportContent, ExitCode: 1},
	}}
	configuration := scenarioConfiguration()
	configuration.Options.CI = &audit.CIConfiguration{ReportPath: reportDirectory}
	configuration.Options.SummaryPath = summaryPath
	outputBuffer := &bytes.Buffer{}

	summary, runError := newTestService(runner, outputBuffer, workingDirectory).Run(context.Background(), audit.RunOptions{Configuration: configuration})

	require.NoError(testInstance, runError)
	require.False(testInstance, summary.Failed)
	for index := 0; index < 2; index++ {
		reportContent, readError := os.ReadFile(filepath.Join(reportDirectory, fmt.Sprintf("report%d.xml", index)))
		require.NoError(testInstance, readError)
		require.Equal(testInstance, serviceJUnitReportContent, string(reportContent))
	}
	require.Contains(testInstance, outputBuffer.String(), "Report for a.html collected")

	for _, command := range runner.commands {
		require.Contains(testInstance, command.Details.Arguments, "junit")
		require.Contains(testInstance, command.Details.Arguments, "--threshold=80")
	}

	summaryContent, readError := os.ReadFile(summaryPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(summaryContent), serviceRunIDConstant)
}

func TestServiceRunUsesManifestTargets(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(
		filepath.Join(configurationDirectory, "targets.yaml"),
		[]byte("baseUrl: http://manifest.example.com/\nfiles:\n  - src: landing.html\n"),
		0o644,
	))

	runner := &urlCommandRunner{outputs: map[string]execshell.ExecutionResult{
		"http://manifest.example.com/landing.html": {StandardOutput: servicePassingJSONConstant},
	}}
	configuration := audit.DefaultCommandConfiguration()
	configuration.Targets = "targets.yaml"

	summary, runError := newTestService(runner, &bytes.Buffer{}, testInstance.TempDir()).Run(context.Background(), audit.RunOptions{
		Configuration:          configuration,
		ConfigurationDirectory: configurationDirectory,
	})

	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, summary.CompletedCount)
}

func TestServiceRunRejectsInvalidSettings(testInstance *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(*audit.CommandConfiguration)
		expectedError string
	}{
		{
			name:          "no targets",
			mutate:        func(configuration *audit.CommandConfiguration) { configuration.Files = nil },
			expectedError: audit.ErrNoTargets.Error(),
		},
		{
			name:          "unknown failure policy",
			mutate:        func(configuration *audit.CommandConfiguration) { configuration.Options.FailurePolicy = "retry" },
			expectedError: "invalid failure policy",
		},
		{
			name:          "unknown unresolved threshold policy",
			mutate:        func(configuration *audit.CommandConfiguration) { configuration.Options.UnresolvedThresholds = "ignore" },
			expectedError: "invalid unresolved threshold policy",
		},
		{
			name:          "machine mode without report path",
			mutate:        func(configuration *audit.CommandConfiguration) { configuration.Options.CI = &audit.CIConfiguration{} },
			expectedError: "report path not configured",
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			configuration := scenarioConfiguration()
			testCase.mutate(&configuration)
			runner := &urlCommandRunner{}

			_, runError := newTestService(runner, &bytes.Buffer{}, subTest.TempDir()).Run(context.Background(), audit.RunOptions{Configuration: configuration})

			require.ErrorContains(subTest, runError, testCase.expectedError)
			require.Empty(subTest, runner.commands)
		})
	}
}
