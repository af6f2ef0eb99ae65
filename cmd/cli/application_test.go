package cli_test

import (
	"bytes"
	"testing"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/temirov/perfgate/cmd/cli"
)

const (
	embeddedDefaultLogLevelConstant      = "info"
	embeddedDefaultLogFormatConstant     = "structured"
	embeddedDefaultTimeoutConstant       = 2 * time.Minute
	embeddedDefaultFailurePolicyConstant = "fail-fast"
	embeddedDefaultUnresolvedConstant    = "skip"
	embeddedDefaultScriptConstant        = "node_modules/grunt-yslow/tasks/lib/yslow.js"
)

func TestEmbeddedDefaultConfigurationDecodes(testInstance *testing.T) {
	configurationData, configurationType := cli.EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, configurationData)
	require.Equal(testInstance, "yaml", configurationType)

	viperInstance := viper.New()
	viperInstance.SetConfigType(configurationType)
	require.NoError(testInstance, viperInstance.ReadConfig(bytes.NewReader(configurationData)))

	var configuration cli.ApplicationConfiguration
	require.NoError(testInstance, viperInstance.Unmarshal(&configuration, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())))

	require.Equal(testInstance, embeddedDefaultLogLevelConstant, configuration.Common.LogLevel)
	require.Equal(testInstance, embeddedDefaultLogFormatConstant, configuration.Common.LogFormat)

	auditConfiguration := configuration.Tools.Audit
	require.Empty(testInstance, auditConfiguration.BaseURL)
	require.Empty(testInstance, auditConfiguration.Files)
	require.Nil(testInstance, auditConfiguration.Options.CI)
	require.Equal(testInstance, embeddedDefaultTimeoutConstant, auditConfiguration.Options.Timeout)
	require.Equal(testInstance, embeddedDefaultFailurePolicyConstant, auditConfiguration.Options.FailurePolicy)
	require.Equal(testInstance, embeddedDefaultUnresolvedConstant, auditConfiguration.Options.UnresolvedThresholds)
	require.Zero(testInstance, auditConfiguration.Options.Concurrency)
	require.Equal(testInstance, embeddedDefaultScriptConstant, auditConfiguration.PhantomJS.Script)
}

func TestEmbeddedDefaultConfigurationReturnsCopy(testInstance *testing.T) {
	firstCopy, _ := cli.EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, firstCopy)
	firstCopy[0] = '#'

	secondCopy, _ := cli.EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, byte('#'), secondCopy[0])
}
