package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	internalTestConfigurationFileNameConstant = "config.yaml"
	internalTestConfigurationContentConstant  = `common:
  log_level: debug
  log_format: console
tools:
  audit:
    baseUrl: http://localhost:8000/
    files:
      - src:
          - index.html
        thresholds:
          score: 90
    options:
      thresholds:
        weight: 500
        speed: 2000
      ci:
        format: tap
        reportPath: reports
      concurrency: 3
      timeout: 45s
      failurePolicy: collect-all
    phantomjs:
      binary: /opt/phantomjs/bin/phantomjs
`
	auditSubcommandNameConstant = "audit"
)

func writeInternalConfiguration(testInstance *testing.T) string {
	testInstance.Helper()
	configurationPath := filepath.Join(testInstance.TempDir(), internalTestConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(internalTestConfigurationContentConstant), 0o644))
	return configurationPath
}

func TestInitializeConfigurationLoadsAuditSettings(testInstance *testing.T) {
	configurationPath := writeInternalConfiguration(testInstance)

	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(configFileFlagNameConstant, configurationPath))

	require.NoError(testInstance, application.initializeConfiguration(rootCommand))

	auditConfiguration := application.configuration.Tools.Audit
	require.Equal(testInstance, "http://localhost:8000/", auditConfiguration.BaseURL)
	require.Len(testInstance, auditConfiguration.Files, 1)
	require.NotNil(testInstance, auditConfiguration.Options.CI)
	require.Equal(testInstance, "tap", auditConfiguration.Options.CI.Format)
	require.Equal(testInstance, "reports", auditConfiguration.Options.CI.ReportPath)
	require.Equal(testInstance, 3, auditConfiguration.Options.Concurrency)
	require.Equal(testInstance, 45*time.Second, auditConfiguration.Options.Timeout)
	require.Equal(testInstance, "collect-all", auditConfiguration.Options.FailurePolicy)
	require.Equal(testInstance, "skip", auditConfiguration.Options.UnresolvedThresholds)
	require.Equal(testInstance, "/opt/phantomjs/bin/phantomjs", auditConfiguration.PhantomJS.Binary)
	require.Equal(testInstance, "node_modules/grunt-yslow/tasks/lib/yslow.js", auditConfiguration.PhantomJS.Script)
	require.True(testInstance, application.humanReadableLoggingEnabled())

	configurationFilePath, configurationPathAvailable := application.commandContextAccessor.ConfigurationFilePath(rootCommand.Context())
	require.True(testInstance, configurationPathAvailable)
	require.Equal(testInstance, configurationPath, configurationFilePath)
}

func TestInitializeConfigurationLogFlagsOverrideConfiguration(testInstance *testing.T) {
	configurationPath := writeInternalConfiguration(testInstance)

	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(configFileFlagNameConstant, configurationPath))
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "error"))
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logFormatFlagNameConstant, "structured"))

	require.NoError(testInstance, application.initializeConfiguration(rootCommand))

	require.Equal(testInstance, "error", application.configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", application.configuration.Common.LogFormat)
	require.False(testInstance, application.humanReadableLoggingEnabled())
}

func TestInitializeConfigurationRejectsUnknownLogLevel(testInstance *testing.T) {
	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(configFileFlagNameConstant, writeInternalConfiguration(testInstance)))
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "verbose"))

	initializationError := application.initializeConfiguration(rootCommand)
	require.Error(testInstance, initializationError)
	require.ErrorContains(testInstance, initializationError, "unable to create logger")
}

func TestNewApplicationRegistersAuditCommand(testInstance *testing.T) {
	application := NewApplication()

	auditCommand, remainingArguments, findError := application.rootCommand.Find([]string{auditSubcommandNameConstant})
	require.NoError(testInstance, findError)
	require.Empty(testInstance, remainingArguments)
	require.Equal(testInstance, auditSubcommandNameConstant, auditCommand.Name())
}

func TestSyncLoggerInstanceToleratesNilLogger(testInstance *testing.T) {
	application := &Application{logger: zap.NewNop()}
	require.NoError(testInstance, application.syncLoggerInstance(nil))
	require.NoError(testInstance, application.flushLogger())
}

func TestInitializeConfigurationEmptyCIBlockSelectsMachineMode(testInstance *testing.T) {
	testCases := []struct {
		name              string
		content           string
		expectMachineMode bool
	}{
		{name: "empty block", content: "tools:\n  audit:\n    options:\n      ci: {}\n", expectMachineMode: true},
		{name: "no block", content: "tools:\n  audit:\n    baseUrl: http://localhost/\n", expectMachineMode: false},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			configurationPath := filepath.Join(subTest.TempDir(), internalTestConfigurationFileNameConstant)
			require.NoError(subTest, os.WriteFile(configurationPath, []byte(testCase.content), 0o644))

			application := NewApplication()
			rootCommand := application.rootCommand
			rootCommand.SetContext(context.Background())
			require.NoError(subTest, rootCommand.PersistentFlags().Set(configFileFlagNameConstant, configurationPath))

			require.NoError(subTest, application.initializeConfiguration(rootCommand))

			ciConfiguration := application.configuration.Tools.Audit.Options.CI
			if !testCase.expectMachineMode {
				require.Nil(subTest, ciConfiguration)
				return
			}
			require.NotNil(subTest, ciConfiguration)
			require.Empty(subTest, ciConfiguration.ReportPath)
		})
	}
}
