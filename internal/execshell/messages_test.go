package execshell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildStartedMessageForCloneNamesRepositorySource(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments: []string{"clone", "-q", "--depth=100", "https://skia.googlesource.com/skia.git", "/tmp/clone"},
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Cloning https://skia.googlesource.com/skia.git", message)
}

func TestBuildSuccessMessageForShowRefIncludesResolvedOutput(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"show-ref", "refs/heads/master"},
			WorkingDirectory: "/workspace/skia",
		},
	}
	result := ExecutionResult{StandardOutput: "abc123 refs/heads/master\n"}

	message := formatter.BuildSuccessMessage(command, result)

	require.Equal(t, "Reference refs/heads/master in /workspace/skia resolved to abc123 refs/heads/master", message)
}

func TestBuildFailureMessageForCommitIncludesExitCodeAndStandardError(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"commit", "-m", "Whitespace change\n\ndetails"},
			WorkingDirectory: "/workspace/chromium",
		},
	}
	result := ExecutionResult{ExitCode: 1, StandardError: "nothing to commit"}

	message := formatter.BuildFailureMessage(command, result)

	require.Equal(t, `Failed to create commit in /workspace/chromium with message "Whitespace change" (exit code 1: nothing to commit)`, message)
}

func TestBuildStartedMessageForStashPopUsesRestoreWording(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"stash", "pop"},
			WorkingDirectory: "/workspace/chromium",
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Restoring stashed modifications in /workspace/chromium", message)
}

func TestBuildStartedMessageForUnknownSubcommandFallsBackToCommandLabel(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name:    CommandGit,
		Details: CommandDetails{Arguments: []string{"gc", "--aggressive"}},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Running git gc --aggressive", message)
}
