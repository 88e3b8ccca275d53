package roll

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rolldeps/rolldeps/internal/depsfile"
	"github.com/rolldeps/rolldeps/internal/execshell"
	"github.com/rolldeps/rolldeps/internal/locator"
	pathutils "github.com/rolldeps/rolldeps/internal/utils/path"
)

const (
	commandUseConstant              = "roll"
	commandShortDescriptionConstant = "Roll the Skia dependency pin in a Chromium checkout"
	commandLongDescriptionConstant  = "roll locates the requested Skia revision, uploads a whitespace control change, and uploads a DEPS change pointing Chromium at the new revision and hash."

	commandExecutionErrorTemplateConstant = "dependency roll failed: %w"
	unexpectedArgumentsMessageConstant    = "roll does not accept positional arguments"

	flagChromiumPathNameConstant         = "chromium-path"
	flagChromiumPathShorthandConstant    = "c"
	flagChromiumPathDescriptionConstant  = "Path to a local Chromium git checkout (defaults to CHROMIUM_CHECKOUT_PATH)"
	flagRevisionNameConstant             = "revision"
	flagRevisionShorthandConstant        = "r"
	flagRevisionDescriptionConstant      = "Skia revision number to roll to (0 rolls to the tracking branch tip)"
	flagBotsNameConstant                 = "bots"
	flagBotsDescriptionConstant          = "Comma-separated list of try bots (empty skips the validation trigger)"
	flagSaveBranchesNameConstant         = "save-branches"
	flagSaveBranchesDescriptionConstant  = "Preserve the upload branches instead of deleting them"
	flagVerboseNameConstant              = "verbose"
	flagVerboseDescriptionConstant       = "Do not suppress review tool output"
	flagSkipUploadNameConstant           = "skip-cl-upload"
	flagSkipUploadDescriptionConstant    = "Commit on the transaction branches without uploading for review"
	flagSearchDepthNameConstant          = "search-depth"
	flagSearchDepthDescriptionConstant   = "How far back to search history for the requested revision"
	flagSkiaPathNameConstant             = "skia-path"
	flagSkiaPathDescriptionConstant      = "Path to a local Skia git checkout; a temporary clone is used when empty (defaults to SKIA_GIT_CHECKOUT_PATH)"
	flagGitPathNameConstant              = "git-path"
	flagGitPathDescriptionConstant       = "Git executable to invoke"
	flagCommandTimeoutNameConstant       = "command-timeout"
	flagCommandTimeoutDescription        = "Upper bound applied to every git invocation"

	chromiumPathEnvironmentVariableName = "CHROMIUM_CHECKOUT_PATH"
	skiaPathEnvironmentVariableName     = "SKIA_GIT_CHECKOUT_PATH"

	botListSeparatorConstant = ","

	gitVersionFlagConstant = "--version"

	chromiumPathRequiredMessageConstant     = "chromium checkout path must be provided"
	chromiumPathNotDirectoryMessageConstant = "chromium checkout path is not a directory"
	negativeRevisionMessageConstant         = "revision number must not be negative"
	gitExecutableInvalidTemplateConstant    = "git executable failed self-test: %w"

	locatedRevisionOutputTemplateConstant = "revision=%d\nhash=%s\n\n"
	rollOutcomeOutputTemplateConstant     = "DEPS roll:\n    %s\n\nWhitespace change:\n    %s\n"
)

// Usage validation errors reported before any repository mutation begins.
var (
	errUnexpectedArguments      = errors.New(unexpectedArgumentsMessageConstant)
	errChromiumPathRequired     = errors.New(chromiumPathRequiredMessageConstant)
	errChromiumPathNotDirectory = errors.New(chromiumPathNotDirectoryMessageConstant)
	errNegativeRevision         = errors.New(negativeRevisionMessageConstant)
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the resolved roll configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the Cobra command for dependency rolls.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	Executor                     GitExecutor
	HumanReadableLoggingProvider func() bool
}

// Build constructs the roll command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	defaults := DefaultCommandConfiguration()

	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().StringP(flagChromiumPathNameConstant, flagChromiumPathShorthandConstant, "", flagChromiumPathDescriptionConstant)
	command.Flags().IntP(flagRevisionNameConstant, flagRevisionShorthandConstant, 0, flagRevisionDescriptionConstant)
	command.Flags().String(flagBotsNameConstant, strings.Join(defaults.Bots, botListSeparatorConstant), flagBotsDescriptionConstant)
	command.Flags().Bool(flagSaveBranchesNameConstant, false, flagSaveBranchesDescriptionConstant)
	command.Flags().Bool(flagVerboseNameConstant, false, flagVerboseDescriptionConstant)
	command.Flags().Bool(flagSkipUploadNameConstant, false, flagSkipUploadDescriptionConstant)
	command.Flags().Int(flagSearchDepthNameConstant, defaults.SearchDepth, flagSearchDepthDescriptionConstant)
	command.Flags().String(flagSkiaPathNameConstant, "", flagSkiaPathDescriptionConstant)
	command.Flags().String(flagGitPathNameConstant, defaults.GitExecutablePath, flagGitPathDescriptionConstant)
	command.Flags().Duration(flagCommandTimeoutNameConstant, defaults.CommandTimeout, flagCommandTimeoutDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.parseConfiguration(command)

	if configuration.Revision < 0 {
		return errNegativeRevision
	}
	if len(configuration.ChromiumPath) == 0 {
		return errChromiumPathRequired
	}
	chromiumInformation, statError := os.Stat(configuration.ChromiumPath)
	if statError != nil || !chromiumInformation.IsDir() {
		return errChromiumPathNotDirectory
	}

	logger := builder.resolveLogger()
	executor, executorError := builder.resolveExecutor(logger, configuration)
	if executorError != nil {
		return executorError
	}

	versionDetails := execshell.CommandDetails{Arguments: []string{gitVersionFlagConstant}}
	if _, versionError := executor.ExecuteGit(command.Context(), versionDetails); versionError != nil {
		return fmt.Errorf(gitExecutableInvalidTemplateConstant, versionError)
	}

	locatorService, locatorError := locator.NewService(
		locator.ServiceDependencies{Logger: logger, GitExecutor: executor},
		locator.ServiceConfiguration{CheckoutPath: configuration.SkiaPath, SearchDepth: configuration.SearchDepth},
	)
	if locatorError != nil {
		return locatorError
	}

	target := locator.TargetRevision{Number: configuration.Revision, Specified: configuration.Revision != 0}
	reference, locateError := locatorService.Locate(command.Context(), target)
	if locateError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, locateError)
	}

	fmt.Fprintf(command.OutOrStdout(), locatedRevisionOutputTemplateConstant, reference.Revision, reference.CommitHash)

	rollService, serviceError := NewService(ServiceDependencies{
		Logger:         logger,
		GitExecutor:    executor,
		ManifestEditor: depsfile.NewEditor(),
	})
	if serviceError != nil {
		return serviceError
	}

	outcome, rollError := rollService.Roll(command.Context(), RollOptions{
		ChromiumPath: configuration.ChromiumPath,
		Revision:     reference.Revision,
		CommitHash:   reference.CommitHash,
		BotNames:     configuration.Bots,
		SaveBranches: configuration.SaveBranches,
		Verbose:      configuration.Verbose,
		SkipUpload:   configuration.SkipCLUpload,
	})
	if rollError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, rollError)
	}

	fmt.Fprintf(command.OutOrStdout(), rollOutcomeOutputTemplateConstant, outcome.ManifestIssue, outcome.ControlIssue)

	return nil
}

// parseConfiguration overlays changed flags onto the provided configuration
// and applies environment defaults for the checkout paths.
func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	flagSet := command.Flags()
	if flagSet.Changed(flagChromiumPathNameConstant) {
		configuration.ChromiumPath, _ = flagSet.GetString(flagChromiumPathNameConstant)
	}
	if flagSet.Changed(flagRevisionNameConstant) {
		configuration.Revision, _ = flagSet.GetInt(flagRevisionNameConstant)
	}
	if flagSet.Changed(flagBotsNameConstant) {
		botListValue, _ := flagSet.GetString(flagBotsNameConstant)
		configuration.Bots = strings.Split(botListValue, botListSeparatorConstant)
	}
	if flagSet.Changed(flagSaveBranchesNameConstant) {
		configuration.SaveBranches, _ = flagSet.GetBool(flagSaveBranchesNameConstant)
	}
	if flagSet.Changed(flagVerboseNameConstant) {
		configuration.Verbose, _ = flagSet.GetBool(flagVerboseNameConstant)
	}
	if flagSet.Changed(flagSkipUploadNameConstant) {
		configuration.SkipCLUpload, _ = flagSet.GetBool(flagSkipUploadNameConstant)
	}
	if flagSet.Changed(flagSearchDepthNameConstant) {
		configuration.SearchDepth, _ = flagSet.GetInt(flagSearchDepthNameConstant)
	}
	if flagSet.Changed(flagSkiaPathNameConstant) {
		configuration.SkiaPath, _ = flagSet.GetString(flagSkiaPathNameConstant)
	}
	if flagSet.Changed(flagGitPathNameConstant) {
		configuration.GitExecutablePath, _ = flagSet.GetString(flagGitPathNameConstant)
	}
	if flagSet.Changed(flagCommandTimeoutNameConstant) {
		configuration.CommandTimeout, _ = flagSet.GetDuration(flagCommandTimeoutNameConstant)
	}

	if len(strings.TrimSpace(configuration.ChromiumPath)) == 0 {
		configuration.ChromiumPath = os.Getenv(chromiumPathEnvironmentVariableName)
	}
	if len(strings.TrimSpace(configuration.SkiaPath)) == 0 {
		configuration.SkiaPath = os.Getenv(skiaPathEnvironmentVariableName)
	}

	return configuration.Sanitize(pathutils.NewCheckoutPathSanitizer())
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

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger, configuration CommandConfiguration) (GitExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, humanReadableLogging)
	if creationError != nil {
		return nil, creationError
	}

	shellExecutor.SetCommandTimeout(configuration.CommandTimeout)
	if configuration.GitExecutablePath != defaultGitExecutableNameConstant {
		shellExecutor.SetGitExecutablePath(configuration.GitExecutablePath)
	}

	return shellExecutor, nil
}
