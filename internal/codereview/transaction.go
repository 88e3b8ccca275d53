package codereview

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rolldeps/rolldeps/internal/execshell"
)

const (
	defaultBranchNameConstant       = "autogenerated_deps_roll_branch"
	mainLineBranchNameConstant      = "master"
	trackingBranchReferenceConstant = "origin/master"
	reviewCarbonCopyFlagConstant    = "--cc=skia-team@google.com"

	gitShowRefSubcommandConstant    = "show-ref"
	gitDiffSubcommandConstant       = "diff"
	gitStashSubcommandConstant      = "stash"
	gitSymbolicRefSubcommand        = "symbolic-ref"
	gitRevParseSubcommandConstant   = "rev-parse"
	gitCheckoutSubcommandConstant   = "checkout"
	gitBranchSubcommandConstant     = "branch"
	gitAddSubcommandConstant        = "add"
	gitCommitSubcommandConstant     = "commit"
	gitSvnSubcommandConstant        = "svn"
	gitCLSubcommandConstant         = "cl"
	gitQuietFlagConstant            = "-q"
	gitQuietLongFlagConstant        = "--quiet"
	gitShortFlagConstant            = "--short"
	gitDeleteBranchFlagConstant     = "-D"
	gitCreateBranchFlagConstant     = "-b"
	gitCommitMessageFlagConstant    = "-m"
	gitHeadReferenceConstant        = "HEAD"
	gitStashSaveArgumentConstant    = "save"
	gitStashPopArgumentConstant     = "pop"
	gitSvnInfoArgumentConstant      = "info"
	gitCLUploadArgumentConstant     = "upload"
	gitCLIssueArgumentConstant      = "issue"
	gitCLTryArgumentConstant        = "try"
	gitCLForceFlagConstant          = "-f"
	gitCLBypassHooksFlagConstant    = "--bypass-hooks"
	gitCLBypassWatchFlagConstant    = "--bypass-watchlists"
	gitCLTryRevisionFlagConstant    = "--revision"
	gitCLTryBotFlagConstant         = "-b"

	upstreamRevisionPatternConstant = `Last Changed Rev: ([0-9]+)\W`

	transactionFinalizedMessageConstant   = "branch transaction already finalized"
	loggerRequiredMessageConstant         = "branch transaction requires a logger"
	gitExecutorRequiredMessageConstant    = "branch transaction requires a git executor"
	repositoryPathRequiredMessageConstant = "branch transaction requires a repository path"
	commitMessageRequiredMessageConstant  = "branch transaction requires a commit message"

	upstreamRevisionMissingMessageConstant = "upstream revision marker missing from svn info"

	restorationWarningTemplateConstant = "%s: %s"
	restorationStepCheckoutConstant    = "restore original branch"
	restorationStepDeleteConstant      = "delete transaction branch"
	restorationStepStashPopConstant    = "restore stashed modifications"

	skippedUploadMessageConstant       = "Skipping review upload"
	skippedValidationMessageConstant   = "Skipping validation trigger"
	commandOutputMessageConstant       = "Command output"
	restorationWarningMessageConstant  = "Restoration step failed"
	structuredCommandFieldNameConstant = "command"
	structuredOutputFieldNameConstant  = "output"
	structuredWarningFieldNameConstant = "warning"

	branchNameSpaceReplacementConstant = "_"
)

var upstreamRevisionExpression = regexp.MustCompile(upstreamRevisionPatternConstant)

// ErrTransactionFinalized reports reuse of an already-finalized transaction.
var ErrTransactionFinalized = errors.New(transactionFinalizedMessageConstant)

type transactionState int

const (
	stateUnentered transactionState = iota
	stateActive
	stateFinalized
)

// FileStager records paths that must be part of the transaction commit.
type FileStager interface {
	Stage(paths ...string)
}

// GitExecutor abstracts the git invocations a transaction performs.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// TransactionDependencies enumerates collaborators required by a BranchTransaction.
type TransactionDependencies struct {
	Logger      *zap.Logger
	GitExecutor GitExecutor
}

// TransactionOptions controls a single branch transaction.
type TransactionOptions struct {
	RepositoryPath    string
	CommitMessage     string
	BranchName        string
	DefaultBranchName string
	BotNames          []string
	Verbose           bool
	SkipUpload        bool
}

// BranchTransaction uploads one change for review from an isolated branch.
type BranchTransaction struct {
	logger      *zap.Logger
	gitExecutor GitExecutor
	options     TransactionOptions

	state            transactionState
	branchName       string
	originalBranch   string
	stashed          bool
	upstreamRevision string
	stagedPaths      []string
	issue            string
	warnings         []string
}

// NewBranchTransaction validates dependencies and constructs a BranchTransaction.
func NewBranchTransaction(dependencies TransactionDependencies, options TransactionOptions) (*BranchTransaction, error) {
	if dependencies.Logger == nil {
		return nil, errors.New(loggerRequiredMessageConstant)
	}
	if dependencies.GitExecutor == nil {
		return nil, errors.New(gitExecutorRequiredMessageConstant)
	}
	if len(strings.TrimSpace(options.RepositoryPath)) == 0 {
		return nil, errors.New(repositoryPathRequiredMessageConstant)
	}
	if len(strings.TrimSpace(options.CommitMessage)) == 0 {
		return nil, errors.New(commitMessageRequiredMessageConstant)
	}

	if len(strings.TrimSpace(options.DefaultBranchName)) == 0 {
		options.DefaultBranchName = defaultBranchNameConstant
	}

	transaction := &BranchTransaction{
		logger:      dependencies.Logger,
		gitExecutor: dependencies.GitExecutor,
		options:     options,
	}

	return transaction, nil
}

// DeriveBranchName converts a commit message's first line into a branch name
// with spaces replaced by underscores.
func DeriveBranchName(commitMessage string) string {
	firstLine := strings.Split(strings.TrimLeft(commitMessage, " \t\n"), "\n")[0]
	return strings.ReplaceAll(strings.TrimRight(firstLine, " \t"), " ", branchNameSpaceReplacementConstant)
}

// Issue returns the review issue descriptor captured during finalization.
func (transaction *BranchTransaction) Issue() string {
	return transaction.issue
}

// BranchName returns the branch the transaction committed on.
func (transaction *BranchTransaction) BranchName() string {
	return transaction.branchName
}

// Warnings returns restoration problems collected during finalization.
func (transaction *BranchTransaction) Warnings() []string {
	return append([]string{}, transaction.warnings...)
}

// Stage records paths for the transaction commit.
func (transaction *BranchTransaction) Stage(paths ...string) {
	transaction.stagedPaths = append(transaction.stagedPaths, paths...)
}

// Execute runs the transaction as a single scoped unit: enter, body, finalize.
//
// The body receives the transaction as a FileStager and must stage every path
// it mutated. Restoration of the original branch and stash state runs on every
// exit path once entry has begun mutating repository state; individual
// restoration failures become Warnings rather than suppressing later steps.
func (transaction *BranchTransaction) Execute(executionContext context.Context, body func(stager FileStager) error) error {
	if transaction.state != stateUnentered {
		return ErrTransactionFinalized
	}
	transaction.state = stateActive

	enterError := transaction.enter(executionContext)
	if enterError != nil {
		transaction.restore(executionContext)
		transaction.state = stateFinalized
		return enterError
	}

	bodyError := body(transaction)

	var finalizeError error
	if bodyError == nil {
		finalizeError = transaction.commitAndUpload(executionContext)
	}

	transaction.restore(executionContext)
	transaction.state = stateFinalized

	if bodyError != nil {
		return bodyError
	}
	return finalizeError
}

func (transaction *BranchTransaction) enter(executionContext context.Context) error {
	workingTreeDirty, diffError := transaction.hasUncommittedChanges(executionContext)
	if diffError != nil {
		return diffError
	}
	if workingTreeDirty {
		if _, stashError := transaction.run(executionContext, gitStashSubcommandConstant, gitStashSaveArgumentConstant); stashError != nil {
			return stashError
		}
		transaction.stashed = true
	}

	originalBranch, branchError := transaction.currentBranch(executionContext)
	if branchError != nil {
		return branchError
	}
	transaction.originalBranch = originalBranch

	transaction.branchName = strings.TrimSpace(transaction.options.BranchName)
	if len(transaction.branchName) == 0 {
		transaction.branchName = transaction.options.DefaultBranchName
	}

	branchExists, existsError := transaction.branchExists(executionContext, transaction.branchName)
	if existsError != nil {
		return existsError
	}
	if branchExists {
		if _, checkoutError := transaction.run(executionContext, gitCheckoutSubcommandConstant, gitQuietFlagConstant, mainLineBranchNameConstant); checkoutError != nil {
			return checkoutError
		}
		if _, deleteError := transaction.run(executionContext, gitBranchSubcommandConstant, gitQuietFlagConstant, gitDeleteBranchFlagConstant, transaction.branchName); deleteError != nil {
			return deleteError
		}
	}

	if _, createError := transaction.run(executionContext, gitCheckoutSubcommandConstant, gitQuietFlagConstant, gitCreateBranchFlagConstant, transaction.branchName, trackingBranchReferenceConstant); createError != nil {
		return createError
	}

	svnInfoResult, svnInfoError := transaction.run(executionContext, gitSvnSubcommandConstant, gitSvnInfoArgumentConstant)
	if svnInfoError != nil {
		return svnInfoError
	}
	revisionMatch := upstreamRevisionExpression.FindStringSubmatch(svnInfoResult.StandardOutput)
	if revisionMatch == nil {
		return errors.New(upstreamRevisionMissingMessageConstant)
	}
	transaction.upstreamRevision = revisionMatch[1]

	return nil
}

func (transaction *BranchTransaction) commitAndUpload(executionContext context.Context) error {
	for _, stagedPath := range transaction.stagedPaths {
		if _, addError := transaction.run(executionContext, gitAddSubcommandConstant, stagedPath); addError != nil {
			return addError
		}
	}

	if _, commitError := transaction.run(executionContext, gitCommitSubcommandConstant, gitQuietFlagConstant, gitCommitMessageFlagConstant, transaction.options.CommitMessage); commitError != nil {
		return commitError
	}

	uploadArguments := []string{
		gitCLSubcommandConstant,
		gitCLUploadArgumentConstant,
		gitCLForceFlagConstant,
		reviewCarbonCopyFlagConstant,
		gitCLBypassHooksFlagConstant,
		gitCLBypassWatchFlagConstant,
	}
	validationArguments := []string{
		gitCLSubcommandConstant,
		gitCLTryArgumentConstant,
		gitCLTryRevisionFlagConstant,
		transaction.upstreamRevision,
	}
	for _, botName := range transaction.options.BotNames {
		validationArguments = append(validationArguments, gitCLTryBotFlagConstant, botName)
	}

	if transaction.options.SkipUpload {
		transaction.logger.Info(
			skippedUploadMessageConstant,
			zap.String(structuredCommandFieldNameConstant, strings.Join(uploadArguments, " ")),
		)
		if len(transaction.options.BotNames) > 0 {
			transaction.logger.Info(
				skippedValidationMessageConstant,
				zap.String(structuredCommandFieldNameConstant, strings.Join(validationArguments, " ")),
			)
		}
		transaction.issue = ""
		return nil
	}

	uploadResult, uploadError := transaction.run(executionContext, uploadArguments...)
	if uploadError != nil {
		return uploadError
	}
	transaction.logVerboseOutput(uploadResult)

	issueResult, issueError := transaction.run(executionContext, gitCLSubcommandConstant, gitCLIssueArgumentConstant)
	if issueError != nil {
		return issueError
	}
	transaction.issue = strings.TrimSpace(issueResult.StandardOutput)

	if len(transaction.options.BotNames) > 0 {
		validationResult, validationError := transaction.run(executionContext, validationArguments...)
		if validationError != nil {
			return validationError
		}
		transaction.logVerboseOutput(validationResult)
	}

	return nil
}

// restore undoes entry-phase repository mutations. Each step is attempted even
// when an earlier one fails; failures become warnings on the transaction.
func (transaction *BranchTransaction) restore(executionContext context.Context) {
	if len(transaction.originalBranch) > 0 {
		restorationTarget := transaction.originalBranch
		if restorationTarget == transaction.options.DefaultBranchName {
			restorationTarget = mainLineBranchNameConstant
		}
		if _, checkoutError := transaction.run(executionContext, gitCheckoutSubcommandConstant, gitQuietFlagConstant, restorationTarget); checkoutError != nil {
			transaction.recordWarning(restorationStepCheckoutConstant, checkoutError)
		}
	}

	if transaction.branchName == transaction.options.DefaultBranchName && len(transaction.branchName) > 0 {
		if _, deleteError := transaction.run(executionContext, gitBranchSubcommandConstant, gitQuietFlagConstant, gitDeleteBranchFlagConstant, transaction.branchName); deleteError != nil {
			transaction.recordWarning(restorationStepDeleteConstant, deleteError)
		}
	}

	if transaction.stashed {
		if _, stashPopError := transaction.run(executionContext, gitStashSubcommandConstant, gitStashPopArgumentConstant); stashPopError != nil {
			transaction.recordWarning(restorationStepStashPopConstant, stashPopError)
		}
	}
}

func (transaction *BranchTransaction) recordWarning(restorationStep string, stepError error) {
	warning := fmt.Sprintf(restorationWarningTemplateConstant, restorationStep, stepError)
	transaction.warnings = append(transaction.warnings, warning)
	transaction.logger.Warn(
		restorationWarningMessageConstant,
		zap.String(structuredWarningFieldNameConstant, warning),
	)
}

func (transaction *BranchTransaction) hasUncommittedChanges(executionContext context.Context) (bool, error) {
	_, diffError := transaction.run(executionContext, gitDiffSubcommandConstant, gitQuietLongFlagConstant, gitHeadReferenceConstant)
	return interpretBooleanExit(diffError)
}

func (transaction *BranchTransaction) branchExists(executionContext context.Context, branchName string) (bool, error) {
	_, showRefError := transaction.run(executionContext, gitShowRefSubcommandConstant, gitQuietLongFlagConstant, branchName)
	if showRefError == nil {
		return true, nil
	}
	exitedNonZero, interpretError := interpretBooleanExit(showRefError)
	if interpretError != nil {
		return false, interpretError
	}
	return !exitedNonZero, nil
}

func (transaction *BranchTransaction) currentBranch(executionContext context.Context) (string, error) {
	symbolicRefResult, symbolicRefError := transaction.run(executionContext, gitSymbolicRefSubcommand, gitShortFlagConstant, gitHeadReferenceConstant)
	if symbolicRefError == nil {
		return strings.TrimSpace(symbolicRefResult.StandardOutput), nil
	}

	if _, interpretError := interpretBooleanExit(symbolicRefError); interpretError != nil {
		return "", interpretError
	}

	revParseResult, revParseError := transaction.run(executionContext, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if revParseError != nil {
		return "", revParseError
	}
	return strings.TrimSpace(revParseResult.StandardOutput), nil
}

func (transaction *BranchTransaction) logVerboseOutput(result execshell.ExecutionResult) {
	if !transaction.options.Verbose {
		return
	}
	trimmedOutput := strings.TrimSpace(result.StandardOutput)
	if len(trimmedOutput) == 0 {
		return
	}
	transaction.logger.Info(
		commandOutputMessageConstant,
		zap.String(structuredOutputFieldNameConstant, trimmedOutput),
	)
}

func (transaction *BranchTransaction) run(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	details := execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: transaction.options.RepositoryPath,
	}
	return transaction.gitExecutor.ExecuteGit(executionContext, details)
}

// interpretBooleanExit treats a non-zero exit as a boolean signal and any
// other failure as a real error.
func interpretBooleanExit(commandError error) (bool, error) {
	if commandError == nil {
		return false, nil
	}
	commandFailure := execshell.CommandFailedError{}
	if errors.As(commandError, &commandFailure) {
		return true, nil
	}
	return false, commandError
}
