package locator_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rolldeps/rolldeps/internal/execshell"
	"github.com/rolldeps/rolldeps/internal/locator"
)

const (
	testCheckoutPathConstant        = "/workspace/skia"
	testTipCommitMessageConstant    = "Commit subject\n\ngit-svn-id: http://skia.googlecode.com/svn/trunk@11021 2bbb7eff-a529-9590-31e7-b0007b416f81\n"
	testTipCommitHashConstant       = "509d2a815e86893dc6728e1d9b2916637034ac7f"
	testHistoricalCommitHash        = "c9f2e4e00a1b7a87f1c1ab2eebb342e5e526833f"
	testHistoricalRevisionConstant  = 10643
	testSearchDepthConstant         = 5
	testExpectedGrepFilterConstant  = "git-svn-id: http://skia.googlecode.com/svn/trunk@10643 "
	testExpectedDepthFlagConstant   = "--depth=5"
	testTipDepthFlagConstant        = "--depth=1"
	testRepositoryURLConstant       = "https://example.test/skia.git"
)

type scriptedGitExecutor struct {
	resultsBySubcommand map[string]execshell.ExecutionResult
	recordedCommands    []execshell.CommandDetails
}

func (executor *scriptedGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	if len(details.Arguments) == 0 {
		return execshell.ExecutionResult{}, nil
	}
	return executor.resultsBySubcommand[details.Arguments[0]], nil
}

func (executor *scriptedGitExecutor) commandBySubcommand(subcommand string) (execshell.CommandDetails, bool) {
	for _, recordedCommand := range executor.recordedCommands {
		if len(recordedCommand.Arguments) > 0 && recordedCommand.Arguments[0] == subcommand {
			return recordedCommand, true
		}
	}
	return execshell.CommandDetails{}, false
}

func newLocatorService(testInstance *testing.T, executor *scriptedGitExecutor, configuration locator.ServiceConfiguration) *locator.Service {
	testInstance.Helper()
	service, creationError := locator.NewService(
		locator.ServiceDependencies{Logger: zap.NewNop(), GitExecutor: executor},
		configuration,
	)
	require.NoError(testInstance, creationError)
	return service
}

func TestServiceConstructionValidatesDependencies(testInstance *testing.T) {
	_, missingLoggerError := locator.NewService(
		locator.ServiceDependencies{GitExecutor: &scriptedGitExecutor{}},
		locator.ServiceConfiguration{},
	)
	require.Error(testInstance, missingLoggerError)

	_, missingExecutorError := locator.NewService(
		locator.ServiceDependencies{Logger: zap.NewNop()},
		locator.ServiceConfiguration{},
	)
	require.Error(testInstance, missingExecutorError)
}

func TestLocateTipRevisionUsesConfiguredCheckout(testInstance *testing.T) {
	executor := &scriptedGitExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{
			"log":      {StandardOutput: testTipCommitMessageConstant},
			"show-ref": {StandardOutput: testTipCommitHashConstant + "\n"},
		},
	}
	service := newLocatorService(testInstance, executor, locator.ServiceConfiguration{CheckoutPath: testCheckoutPathConstant})

	reference, locateError := service.Locate(context.Background(), locator.TargetRevision{})
	require.NoError(testInstance, locateError)
	require.Equal(testInstance, 11021, reference.Revision)
	require.Equal(testInstance, testTipCommitHashConstant, reference.CommitHash)

	fetchCommand, fetchRecorded := executor.commandBySubcommand("fetch")
	require.True(testInstance, fetchRecorded)
	require.Equal(testInstance, testCheckoutPathConstant, fetchCommand.WorkingDirectory)

	_, cloneRecorded := executor.commandBySubcommand("clone")
	require.False(testInstance, cloneRecorded)
}

func TestLocateTipRevisionWithoutMarkerReportsNotFound(testInstance *testing.T) {
	executor := &scriptedGitExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{
			"log":      {StandardOutput: "Commit without marker\n"},
			"show-ref": {StandardOutput: testTipCommitHashConstant},
		},
	}
	service := newLocatorService(testInstance, executor, locator.ServiceConfiguration{CheckoutPath: testCheckoutPathConstant})

	_, locateError := service.Locate(context.Background(), locator.TargetRevision{})
	require.Error(testInstance, locateError)
	require.IsType(testInstance, locator.RevisionNotFoundError{}, locateError)
}

func TestLocateHistoricalRevisionClonesWithSearchDepth(testInstance *testing.T) {
	executor := &scriptedGitExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{
			"log": {StandardOutput: testHistoricalCommitHash + "\n"},
		},
	}
	service := newLocatorService(testInstance, executor, locator.ServiceConfiguration{
		RepositoryURL: testRepositoryURLConstant,
		SearchDepth:   testSearchDepthConstant,
	})

	reference, locateError := service.Locate(context.Background(), locator.TargetRevision{Number: testHistoricalRevisionConstant, Specified: true})
	require.NoError(testInstance, locateError)
	require.Equal(testInstance, testHistoricalRevisionConstant, reference.Revision)
	require.Equal(testInstance, testHistoricalCommitHash, reference.CommitHash)

	cloneCommand, cloneRecorded := executor.commandBySubcommand("clone")
	require.True(testInstance, cloneRecorded)
	require.Contains(testInstance, cloneCommand.Arguments, testExpectedDepthFlagConstant)
	require.Contains(testInstance, cloneCommand.Arguments, testRepositoryURLConstant)

	temporaryCloneDirectory := cloneCommand.Arguments[len(cloneCommand.Arguments)-1]
	require.True(testInstance, strings.Contains(temporaryCloneDirectory, "git_skia_tmp_"))
	_, statError := os.Stat(temporaryCloneDirectory)
	require.True(testInstance, os.IsNotExist(statError))

	logCommand, logRecorded := executor.commandBySubcommand("log")
	require.True(testInstance, logRecorded)
	require.Contains(testInstance, logCommand.Arguments, testExpectedGrepFilterConstant)
	require.Equal(testInstance, temporaryCloneDirectory, logCommand.WorkingDirectory)
}

func TestLocateTipRevisionClonesWithDepthOne(testInstance *testing.T) {
	executor := &scriptedGitExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{
			"log":      {StandardOutput: testTipCommitMessageConstant},
			"show-ref": {StandardOutput: testTipCommitHashConstant},
		},
	}
	service := newLocatorService(testInstance, executor, locator.ServiceConfiguration{})

	_, locateError := service.Locate(context.Background(), locator.TargetRevision{})
	require.NoError(testInstance, locateError)

	cloneCommand, cloneRecorded := executor.commandBySubcommand("clone")
	require.True(testInstance, cloneRecorded)
	require.Contains(testInstance, cloneCommand.Arguments, testTipDepthFlagConstant)
}

func TestLocateHistoricalRevisionWithoutMatchReportsNotFound(testInstance *testing.T) {
	executor := &scriptedGitExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{
			"log": {StandardOutput: ""},
		},
	}
	service := newLocatorService(testInstance, executor, locator.ServiceConfiguration{CheckoutPath: testCheckoutPathConstant})

	_, locateError := service.Locate(context.Background(), locator.TargetRevision{Number: testHistoricalRevisionConstant, Specified: true})
	require.Error(testInstance, locateError)
	require.IsType(testInstance, locator.RevisionNotFoundError{}, locateError)
}

func TestLocateNegativeRevisionReportsNotFound(testInstance *testing.T) {
	executor := &scriptedGitExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{
			"log": {StandardOutput: testHistoricalCommitHash},
		},
	}
	service := newLocatorService(testInstance, executor, locator.ServiceConfiguration{CheckoutPath: testCheckoutPathConstant})

	_, locateError := service.Locate(context.Background(), locator.TargetRevision{Number: -4, Specified: true})
	require.Error(testInstance, locateError)
	require.IsType(testInstance, locator.RevisionNotFoundError{}, locateError)
}
