package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rolldeps/rolldeps/internal/utils"
)

const testContextConfigurationPathConstant = "/workspace/config.yaml"

func TestCommandContextAccessorRoundTripsValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	decoratedContext := accessor.WithConfigurationFilePath(context.Background(), testContextConfigurationPathConstant)
	decoratedContext = accessor.WithLogLevel(decoratedContext, utils.LogLevelDebug)
	decoratedContext = accessor.WithLogFormat(decoratedContext, utils.LogFormatConsole)

	configurationFilePath, configurationFilePathAvailable := accessor.ConfigurationFilePath(decoratedContext)
	require.True(testInstance, configurationFilePathAvailable)
	require.Equal(testInstance, testContextConfigurationPathConstant, configurationFilePath)

	logLevel, logLevelAvailable := accessor.LogLevel(decoratedContext)
	require.True(testInstance, logLevelAvailable)
	require.Equal(testInstance, utils.LogLevelDebug, logLevel)

	logFormat, logFormatAvailable := accessor.LogFormat(decoratedContext)
	require.True(testInstance, logFormatAvailable)
	require.Equal(testInstance, utils.LogFormatConsole, logFormat)
}

func TestCommandContextAccessorReportsMissingValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, configurationFilePathAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, configurationFilePathAvailable)

	_, logLevelAvailable := accessor.LogLevel(nil)
	require.False(testInstance, logLevelAvailable)

	_, logFormatAvailable := accessor.LogFormat(context.Background())
	require.False(testInstance, logFormatAvailable)
}
