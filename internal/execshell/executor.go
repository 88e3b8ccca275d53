package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	gitToolNameConstant                       = "git"
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandFailedTemplateConstant             = "%s exited with code %d%s"
	commandExecutionTemplateConstant          = "%s failed: %s"
	commandTimedOutTemplateConstant           = "%s timed out after %s"
	commandStandardErrorSuffixTemplate        = ": %s"
	structuredCommandFieldNameConstant        = "command"
	structuredArgumentsFieldNameConstant      = "arguments"
	structuredWorkingDirectoryFieldName       = "working_directory"
	structuredExitCodeFieldNameConstant       = "exit_code"
)

// CommandName identifies the executable a ShellCommand invokes.
type CommandName string

// CommandGit names the git executable used for every repository operation.
const CommandGit CommandName = CommandName(gitToolNameConstant)

// CommandDetails describes a single tool invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a CommandName with invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// Initialization errors reported by NewShellExecutor.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that completed with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the non-zero exit.
func (failure CommandFailedError) Error() string {
	return fmt.Sprintf(commandFailedTemplateConstant, formatCommandLabel(failure.Command), failure.Result.ExitCode, formatStandardErrorSuffix(failure.Result.StandardError))
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionTemplateConstant, formatCommandLabel(failure.Command), failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// CommandTimedOutError reports a command cancelled by the bounded invocation timeout.
type CommandTimedOutError struct {
	Command ShellCommand
	Timeout time.Duration
}

// Error describes the timeout.
func (failure CommandTimedOutError) Error() string {
	return fmt.Sprintf(commandTimedOutTemplateConstant, formatCommandLabel(failure.Command), failure.Timeout)
}

// ShellExecutor coordinates command execution, logging, and timeout handling.
type ShellExecutor struct {
	logger               *zap.Logger
	commandRunner        CommandRunner
	messageFormatter     CommandMessageFormatter
	humanReadableLogging bool
	commandTimeout       time.Duration
	gitExecutablePath    string
}

// NewShellExecutor validates dependencies and builds a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, humanReadableLogging ...bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	humanReadable := false
	if len(humanReadableLogging) > 0 {
		humanReadable = humanReadableLogging[0]
	}

	executor := &ShellExecutor{
		logger:               logger,
		commandRunner:        commandRunner,
		messageFormatter:     CommandMessageFormatter{},
		humanReadableLogging: humanReadable,
	}

	return executor, nil
}

// SetCommandTimeout bounds every subsequent invocation; zero disables the bound.
func (executor *ShellExecutor) SetCommandTimeout(timeout time.Duration) {
	executor.commandTimeout = timeout
}

// SetGitExecutablePath overrides the executable used for git invocations.
func (executor *ShellExecutor) SetGitExecutablePath(executablePath string) {
	executor.gitExecutablePath = strings.TrimSpace(executablePath)
}

// ExecuteGit runs the configured git executable with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	commandName := CommandGit
	if len(executor.gitExecutablePath) > 0 {
		commandName = CommandName(executor.gitExecutablePath)
	}
	return executor.Execute(executionContext, ShellCommand{Name: commandName, Details: details})
}

// Execute runs an arbitrary command, logging its lifecycle and translating failures.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	runContext := executionContext
	if executor.commandTimeout > 0 {
		var cancelFunction context.CancelFunc
		runContext, cancelFunction = context.WithTimeout(executionContext, executor.commandTimeout)
		defer cancelFunction()
	}

	executor.logStarted(command)

	executionResult, runError := executor.commandRunner.Run(runContext, command)

	if executor.commandTimeout > 0 && errors.Is(runContext.Err(), context.DeadlineExceeded) {
		timeoutFailure := CommandTimedOutError{Command: command, Timeout: executor.commandTimeout}
		executor.logExecutionFailure(command, timeoutFailure)
		return executionResult, timeoutFailure
	}

	if runError != nil {
		executionFailure := CommandExecutionError{Command: command, Cause: runError}
		executor.logExecutionFailure(command, executionFailure)
		return executionResult, executionFailure
	}

	if executionResult.ExitCode != 0 {
		commandFailure := CommandFailedError{Command: command, Result: executionResult}
		executor.logFailure(command, executionResult)
		return executionResult, commandFailure
	}

	executor.logSuccess(command, executionResult)
	return executionResult, nil
}

func (executor *ShellExecutor) logStarted(command ShellCommand) {
	if executor.humanReadableLogging {
		executor.logger.Debug(executor.messageFormatter.BuildStartedMessage(command))
		return
	}
	executor.logger.Debug(
		executor.messageFormatter.BuildStartedMessage(command),
		zap.String(structuredCommandFieldNameConstant, string(command.Name)),
		zap.Strings(structuredArgumentsFieldNameConstant, command.Details.Arguments),
		zap.String(structuredWorkingDirectoryFieldName, command.Details.WorkingDirectory),
	)
}

func (executor *ShellExecutor) logSuccess(command ShellCommand, result ExecutionResult) {
	if executor.humanReadableLogging {
		executor.logger.Debug(executor.messageFormatter.BuildSuccessMessage(command, result))
		return
	}
	executor.logger.Debug(
		executor.messageFormatter.BuildSuccessMessage(command, result),
		zap.String(structuredCommandFieldNameConstant, string(command.Name)),
		zap.Int(structuredExitCodeFieldNameConstant, result.ExitCode),
	)
}

func (executor *ShellExecutor) logFailure(command ShellCommand, result ExecutionResult) {
	executor.logger.Error(
		executor.messageFormatter.BuildFailureMessage(command, result),
		zap.String(structuredCommandFieldNameConstant, string(command.Name)),
		zap.Int(structuredExitCodeFieldNameConstant, result.ExitCode),
	)
}

func (executor *ShellExecutor) logExecutionFailure(command ShellCommand, failure error) {
	executor.logger.Error(
		executor.messageFormatter.BuildExecutionFailureMessage(command, failure),
		zap.String(structuredCommandFieldNameConstant, string(command.Name)),
	)
}

func formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, " "))
	}
	return commandLabel
}

func formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(commandStandardErrorSuffixTemplate, trimmedStandardError)
}
