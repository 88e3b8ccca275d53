package roll

import (
	"strings"
	"time"

	pathutils "github.com/rolldeps/rolldeps/internal/utils/path"
)

const (
	defaultGitExecutableNameConstant = "git"
	defaultSearchDepthConstant       = 100
	defaultCommandTimeoutConstant    = 5 * time.Minute

	configurationKeySeparatorConstant   = "."
	configurationBotsKeyConstant        = "bots"
	configurationSearchDepthKeyConstant = "search_depth"
	configurationGitPathKeyConstant     = "git_path"
	configurationCommandTimeoutKeyConst = "command_timeout"
)

// defaultBotNames lists the try bots a roll triggers when no override is given.
var defaultBotNames = []string{
	"android_clang_dbg",
	"android_dbg",
	"android_rel",
	"cros_daisy",
	"linux",
	"linux_asan",
	"linux_chromeos",
	"linux_chromeos_asan",
	"linux_gpu",
	"linux_heapcheck",
	"linux_layout",
	"linux_layout_rel",
	"mac",
	"mac_asan",
	"mac_gpu",
	"mac_layout",
	"mac_layout_rel",
	"win",
	"win_gpu",
	"win_layout",
	"win_layout_rel",
}

// CommandConfiguration captures configuration values for the roll command.
type CommandConfiguration struct {
	ChromiumPath      string        `mapstructure:"chromium_path"`
	SkiaPath          string        `mapstructure:"skia_path"`
	Revision          int           `mapstructure:"revision"`
	Bots              []string      `mapstructure:"bots"`
	SaveBranches      bool          `mapstructure:"save_branches"`
	Verbose           bool          `mapstructure:"verbose"`
	SkipCLUpload      bool          `mapstructure:"skip_cl_upload"`
	SearchDepth       int           `mapstructure:"search_depth"`
	GitExecutablePath string        `mapstructure:"git_path"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
}

// DefaultCommandConfiguration provides baseline configuration values for the roll command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Bots:              append([]string{}, defaultBotNames...),
		SearchDepth:       defaultSearchDepthConstant,
		GitExecutablePath: defaultGitExecutableNameConstant,
		CommandTimeout:    defaultCommandTimeoutConstant,
	}
}

// DefaultConfigurationValues exposes roll defaults keyed beneath rootKey for configuration loading.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationBotsKeyConstant:        defaults.Bots,
		rootKey + configurationKeySeparatorConstant + configurationSearchDepthKeyConstant: defaults.SearchDepth,
		rootKey + configurationKeySeparatorConstant + configurationGitPathKeyConstant:     defaults.GitExecutablePath,
		rootKey + configurationKeySeparatorConstant + configurationCommandTimeoutKeyConst: defaults.CommandTimeout,
	}
}

// Sanitize normalizes configured paths and removes empty bot entries.
func (configuration CommandConfiguration) Sanitize(sanitizer *pathutils.CheckoutPathSanitizer) CommandConfiguration {
	if sanitizer == nil {
		sanitizer = pathutils.NewCheckoutPathSanitizer()
	}

	sanitized := configuration
	sanitized.ChromiumPath = sanitizer.Sanitize(configuration.ChromiumPath)
	sanitized.SkiaPath = sanitizer.Sanitize(configuration.SkiaPath)
	sanitized.GitExecutablePath = strings.TrimSpace(configuration.GitExecutablePath)
	sanitized.Bots = sanitizeBotNames(configuration.Bots)

	return sanitized
}

func sanitizeBotNames(rawBotNames []string) []string {
	sanitizedBotNames := make([]string, 0, len(rawBotNames))
	for _, botName := range rawBotNames {
		trimmedBotName := strings.TrimSpace(botName)
		if len(trimmedBotName) == 0 {
			continue
		}
		sanitizedBotNames = append(sanitizedBotNames, trimmedBotName)
	}
	if len(sanitizedBotNames) == 0 {
		return nil
	}
	return sanitizedBotNames
}
