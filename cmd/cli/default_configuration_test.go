package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rolldeps/rolldeps/internal/roll"
)

type embeddedConfigurationDocument struct {
	Common struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"common"`
	Tools struct {
		Roll struct {
			SearchDepth    int    `yaml:"search_depth"`
			GitPath        string `yaml:"git_path"`
			CommandTimeout string `yaml:"command_timeout"`
		} `yaml:"roll"`
	} `yaml:"tools"`
}

func TestEmbeddedDefaultConfigurationMatchesCommandDefaults(testInstance *testing.T) {
	configurationContent, configurationType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, configurationTypeConstant, configurationType)
	require.NotEmpty(testInstance, configurationContent)

	document := embeddedConfigurationDocument{}
	require.NoError(testInstance, yaml.Unmarshal(configurationContent, &document))

	require.Equal(testInstance, "info", document.Common.LogLevel)
	require.Equal(testInstance, "structured", document.Common.LogFormat)

	commandDefaults := roll.DefaultCommandConfiguration()
	require.Equal(testInstance, commandDefaults.SearchDepth, document.Tools.Roll.SearchDepth)
	require.Equal(testInstance, commandDefaults.GitExecutablePath, document.Tools.Roll.GitPath)

	embeddedTimeout, parseError := time.ParseDuration(document.Tools.Roll.CommandTimeout)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, commandDefaults.CommandTimeout, embeddedTimeout)
}

func TestEmbeddedDefaultConfigurationReturnsDefensiveCopy(testInstance *testing.T) {
	firstCopy, _ := EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, firstCopy)
	firstCopy[0] = '#'

	secondCopy, _ := EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, byte('#'), secondCopy[0])
}
