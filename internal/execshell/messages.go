package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	unknownFailureMessageConstant           = "unknown error"
)

const (
	gitCloneSubcommandNameConstant    = "clone"
	gitFetchSubcommandNameConstant    = "fetch"
	gitLogSubcommandNameConstant      = "log"
	gitShowRefSubcommandNameConstant  = "show-ref"
	gitStashSubcommandNameConstant    = "stash"
	gitStashPopArgumentConstant       = "pop"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitBranchSubcommandNameConstant   = "branch"
	gitDeleteShortFlagConstant        = "-D"
	gitAddSubcommandNameConstant      = "add"
	gitCommitSubcommandNameConstant   = "commit"
	gitMessageFlagConstant            = "-m"
	gitCLSubcommandNameConstant       = "cl"
	gitCLUploadArgumentConstant       = "upload"
	gitCLIssueArgumentConstant        = "issue"
	gitCLTryArgumentConstant          = "try"
)

const (
	gitCloneStartTemplateConstant            = "Cloning %s"
	gitCloneSuccessTemplateConstant          = "Cloned %s"
	gitCloneFailureTemplateConstant          = "Failed to clone %s (exit code %d%s)"
	gitFetchStartTemplateConstant            = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant          = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant          = "Failed to fetch from %s in %s (exit code %d%s)"
	gitLogStartTemplateConstant              = "Reading commit history in %s"
	gitLogSuccessTemplateConstant            = "Read commit history in %s"
	gitLogFailureTemplateConstant            = "Failed to read commit history in %s (exit code %d%s)"
	gitShowRefStartTemplateConstant          = "Resolving reference %s in %s"
	gitShowRefSuccessTemplateConstant        = "Reference %s in %s resolved to %s"
	gitShowRefEmptySuccessTemplateConstant   = "Reference %s in %s did not resolve"
	gitShowRefFailureTemplateConstant        = "Failed to resolve reference %s in %s (exit code %d%s)"
	gitStashSaveStartTemplateConstant        = "Stashing local modifications in %s"
	gitStashSaveSuccessTemplateConstant      = "Stashed local modifications in %s"
	gitStashSaveFailureTemplateConstant      = "Failed to stash local modifications in %s (exit code %d%s)"
	gitStashPopStartTemplateConstant         = "Restoring stashed modifications in %s"
	gitStashPopSuccessTemplateConstant       = "Restored stashed modifications in %s"
	gitStashPopFailureTemplateConstant       = "Failed to restore stashed modifications in %s (exit code %d%s)"
	gitCheckoutStartTemplateConstant         = "Switching %s to %s"
	gitCheckoutSuccessTemplateConstant       = "%s now on %s"
	gitCheckoutFailureTemplateConstant       = "Failed to switch %s to %s (exit code %d%s)"
	gitBranchDeletionStartTemplateConstant   = "Removing local branch %s in %s"
	gitBranchDeletionSuccessTemplateConstant = "Removed local branch %s in %s"
	gitBranchDeletionFailureTemplateConstant = "Failed to remove local branch %s in %s (exit code %d%s)"
	gitAddStartTemplateConstant              = "Staging %s in %s"
	gitAddSuccessTemplateConstant            = "Staged %s in %s"
	gitAddFailureTemplateConstant            = "Failed to stage %s in %s (exit code %d%s)"
	gitCommitStartTemplateConstant           = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant         = "Created commit in %s with message %q"
	gitCommitFailureTemplateConstant         = "Failed to create commit in %s with message %q (exit code %d%s)"
	gitCLUploadStartTemplateConstant         = "Uploading change for review from %s"
	gitCLUploadSuccessTemplateConstant       = "Uploaded change for review from %s"
	gitCLUploadFailureTemplateConstant       = "Failed to upload change for review from %s (exit code %d%s)"
	gitCLIssueStartTemplateConstant          = "Reading review issue for %s"
	gitCLIssueSuccessTemplateConstant        = "Review issue for %s is %s"
	gitCLIssueFailureTemplateConstant        = "Failed to read review issue for %s (exit code %d%s)"
	gitCLTryStartTemplateConstant            = "Triggering try jobs for %s"
	gitCLTrySuccessTemplateConstant          = "Triggered try jobs for %s"
	gitCLTryFailureTemplateConstant          = "Failed to trigger try jobs for %s (exit code %d%s)"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if stage == messageStageExecutionFailure {
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, formatCommandLabel(command), formatter.describeFailure(failure))
	}
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitCloneSubcommandNameConstant:
		return formatter.describeClone(command, result, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeFetch(command, result, stage)
	case gitLogSubcommandNameConstant:
		return formatter.describeLog(command, result, stage)
	case gitShowRefSubcommandNameConstant:
		return formatter.describeShowRef(command, result, stage)
	case gitStashSubcommandNameConstant:
		return formatter.describeStash(command, result, stage)
	case gitCheckoutSubcommandNameConstant:
		return formatter.describeCheckout(command, result, stage)
	case gitBranchSubcommandNameConstant:
		return formatter.describeBranch(command, result, stage)
	case gitAddSubcommandNameConstant:
		return formatter.describeAdd(command, result, stage)
	case gitCommitSubcommandNameConstant:
		return formatter.describeCommit(command, result, stage)
	case gitCLSubcommandNameConstant:
		return formatter.describeCL(command, result, stage)
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeClone(command ShellCommand, result ExecutionResult, stage messageStage) string {
	repositorySource := formatter.ensureValue(formatter.cloneSource(command.Details.Arguments))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneStartTemplateConstant, repositorySource)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, repositorySource)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, repositorySource, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeFetch(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.ensureValue(formatter.firstNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitFetchStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitFetchSuccessTemplateConstant, remoteName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitFetchFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeLog(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitLogStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitLogSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitLogFailureTemplateConstant, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeShowRef(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	reference := formatter.ensureValue(formatter.firstNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitShowRefStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		trimmedOutput := strings.TrimSpace(result.StandardOutput)
		if len(trimmedOutput) == 0 {
			return fmt.Sprintf(gitShowRefEmptySuccessTemplateConstant, reference, workingDirectory)
		}
		return fmt.Sprintf(gitShowRefSuccessTemplateConstant, reference, workingDirectory, trimmedOutput)
	case messageStageFailure:
		return fmt.Sprintf(gitShowRefFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeStash(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	isPop := len(command.Details.Arguments) > 1 && strings.TrimSpace(command.Details.Arguments[1]) == gitStashPopArgumentConstant
	switch stage {
	case messageStageStart:
		if isPop {
			return fmt.Sprintf(gitStashPopStartTemplateConstant, workingDirectory)
		}
		return fmt.Sprintf(gitStashSaveStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		if isPop {
			return fmt.Sprintf(gitStashPopSuccessTemplateConstant, workingDirectory)
		}
		return fmt.Sprintf(gitStashSaveSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		if isPop {
			return fmt.Sprintf(gitStashPopFailureTemplateConstant, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
		}
		return fmt.Sprintf(gitStashSaveFailureTemplateConstant, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeCheckout(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	target := formatter.ensureValue(formatter.lastNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, target)
	case messageStageSuccess:
		return fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, target)
	case messageStageFailure:
		return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, target, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeBranch(command ShellCommand, result ExecutionResult, stage messageStage) string {
	arguments := command.Details.Arguments
	if !containsArgument(arguments, gitDeleteShortFlagConstant) {
		return formatter.buildGenericMessage(command, result, stage)
	}
	workingDirectory := formatter.describeWorkingDirectory(command)
	branchName := formatter.ensureValue(formatter.lastNonFlagArgument(arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitBranchDeletionStartTemplateConstant, branchName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitBranchDeletionSuccessTemplateConstant, branchName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitBranchDeletionFailureTemplateConstant, branchName, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeAdd(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	targetPath := formatter.ensureValue(formatter.firstNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitAddStartTemplateConstant, targetPath, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitAddSuccessTemplateConstant, targetPath, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitAddFailureTemplateConstant, targetPath, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeCommit(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	commitMessage := formatter.commitMessageSummary(command.Details.Arguments)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCommitStartTemplateConstant, workingDirectory, commitMessage)
	case messageStageSuccess:
		return fmt.Sprintf(gitCommitSuccessTemplateConstant, workingDirectory, commitMessage)
	case messageStageFailure:
		return fmt.Sprintf(gitCommitFailureTemplateConstant, workingDirectory, commitMessage, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return formatter.buildGenericMessage(command, result, stage)
	}
}

func (formatter CommandMessageFormatter) describeCL(command ShellCommand, result ExecutionResult, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 {
		return formatter.buildGenericMessage(command, result, stage)
	}
	workingDirectory := formatter.describeWorkingDirectory(command)
	operation := strings.TrimSpace(arguments[1])

	switch operation {
	case gitCLUploadArgumentConstant:
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCLUploadStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitCLUploadSuccessTemplateConstant, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitCLUploadFailureTemplateConstant, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
		}
	case gitCLIssueArgumentConstant:
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCLIssueStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitCLIssueSuccessTemplateConstant, workingDirectory, formatter.ensureValue(strings.TrimSpace(result.StandardOutput)))
		case messageStageFailure:
			return fmt.Sprintf(gitCLIssueFailureTemplateConstant, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
		}
	case gitCLTryArgumentConstant:
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCLTryStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitCLTrySuccessTemplateConstant, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitCLTryFailureTemplateConstant, workingDirectory, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
		}
	}

	return formatter.buildGenericMessage(command, result, stage)
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, stage messageStage) string {
	commandLabel := formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmedValue
}

// cloneSource returns the repository argument of a clone invocation, which
// precedes the optional destination directory.
func (formatter CommandMessageFormatter) cloneSource(arguments []string) string {
	positionalArguments := []string{}
	for _, argument := range arguments[1:] {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, "-") {
			continue
		}
		positionalArguments = append(positionalArguments, trimmedArgument)
	}
	if len(positionalArguments) == 0 {
		return emptyStringConstant
	}
	return positionalArguments[0]
}

func (formatter CommandMessageFormatter) firstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, "-") {
			continue
		}
		return trimmedArgument
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) lastNonFlagArgument(arguments []string) string {
	for argumentIndex := len(arguments) - 1; argumentIndex >= 0; argumentIndex-- {
		trimmedArgument := strings.TrimSpace(arguments[argumentIndex])
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, "-") {
			continue
		}
		return trimmedArgument
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) commitMessageSummary(arguments []string) string {
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		if strings.TrimSpace(arguments[argumentIndex]) == gitMessageFlagConstant && argumentIndex+1 < len(arguments) {
			messageLines := strings.SplitN(strings.TrimSpace(arguments[argumentIndex+1]), "\n", 2)
			return messageLines[0]
		}
	}
	return fallbackUnknownValueLabelConstant
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
