package roll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rolldeps/rolldeps/internal/codereview"
	"github.com/rolldeps/rolldeps/internal/execshell"
)

const (
	controlFileRelativePathConstant = "build/whitespace_file.txt"
	controlMarkerContentConstant    = "\nCONTROL\n"
	manifestFileNameConstant        = "DEPS"
	trackingBranchReferenceConstant = "origin/master"
	tipHashFragmentLengthConstant   = 8
	controlURLPatternConstant       = `https?://[^) ]+`

	whitespaceCommitMessageTemplateConstant = "whitespace change %s\n\nThis CL was created by the Skia roll-deps tool.\n"
	manifestCommitMessageControlTemplate    = "roll skia DEPS to %d\n\nThis CL was created by the Skia roll-deps tool.\n\ncontrol: %s"
	manifestCommitMessageTemplateConstant   = "roll skia DEPS to %d\n\nThis CL was created by the Skia roll-deps tool."
	preservedBranchAnnotationTemplate       = "%s\n    branch: %s"
	controlFileAppendErrorTemplateConstant  = "failed to append control marker to %s: %w"

	gitFetchSubcommandConstant   = "fetch"
	gitShowRefSubcommandConstant = "show-ref"
	gitQuietFlagConstant         = "-q"
	gitOriginRemoteNameConstant  = "origin"
	gitShowRefHashFlagConstant   = "--hash"

	loggerRequiredMessageConstant      = "roll service requires a logger"
	gitExecutorRequiredMessageConstant = "roll service requires a git executor"

	uploadedControlChangeMessageConstant  = "Uploaded whitespace control change"
	uploadedManifestChangeMessageConstant = "Uploaded DEPS roll change"
	structuredIssueFieldNameConstant      = "issue"
	structuredBranchFieldNameConstant     = "branch"
)

var controlURLExpression = regexp.MustCompile(controlURLPatternConstant)

// GitExecutor abstracts the git invocations the roll service performs.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ManifestEditor rewrites dependency pin fields inside a manifest file.
type ManifestEditor interface {
	Rewrite(revision int, commitHash string, manifestPath string) error
}

// ReviewTransaction is the scoped unit the service runs each upload through.
type ReviewTransaction interface {
	Execute(executionContext context.Context, body func(stager codereview.FileStager) error) error
	Issue() string
	BranchName() string
	Warnings() []string
}

// TransactionFactory builds a ReviewTransaction for the provided options.
type TransactionFactory func(options codereview.TransactionOptions) (ReviewTransaction, error)

// ServiceDependencies enumerates collaborators required by the roll Service.
type ServiceDependencies struct {
	Logger             *zap.Logger
	GitExecutor        GitExecutor
	ManifestEditor     ManifestEditor
	TransactionFactory TransactionFactory
}

// RollOptions describes one dependency roll.
type RollOptions struct {
	ChromiumPath string
	Revision     int
	CommitHash   string
	BotNames     []string
	SaveBranches bool
	Verbose      bool
	SkipUpload   bool
}

// RollOutcome reports the review issues produced by a roll.
type RollOutcome struct {
	ManifestIssue string
	ControlIssue  string
	Warnings      []string
}

// Service uploads the control and manifest reviews for a dependency roll.
type Service struct {
	logger             *zap.Logger
	gitExecutor        GitExecutor
	manifestEditor     ManifestEditor
	transactionFactory TransactionFactory
}

// NewService validates dependencies and constructs a roll Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, errors.New(loggerRequiredMessageConstant)
	}
	if dependencies.GitExecutor == nil {
		return nil, errors.New(gitExecutorRequiredMessageConstant)
	}

	service := &Service{
		logger:             dependencies.Logger,
		gitExecutor:        dependencies.GitExecutor,
		manifestEditor:     dependencies.ManifestEditor,
		transactionFactory: dependencies.TransactionFactory,
	}

	if service.transactionFactory == nil {
		service.transactionFactory = func(options codereview.TransactionOptions) (ReviewTransaction, error) {
			return codereview.NewBranchTransaction(
				codereview.TransactionDependencies{Logger: dependencies.Logger, GitExecutor: dependencies.GitExecutor},
				options,
			)
		}
	}

	return service, nil
}

// Roll uploads the whitespace control change and the DEPS manifest change.
//
// Both uploads run as scoped branch transactions against the Chromium
// checkout, so the checkout returns to its original branch and stash state
// whatever the outcome. Restoration warnings from both transactions surface
// on the returned outcome.
func (service *Service) Roll(executionContext context.Context, options RollOptions) (RollOutcome, error) {
	outcome := RollOutcome{}

	fetchDetails := execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, gitQuietFlagConstant, gitOriginRemoteNameConstant},
		WorkingDirectory: options.ChromiumPath,
	}
	if _, fetchError := service.gitExecutor.ExecuteGit(executionContext, fetchDetails); fetchError != nil {
		return outcome, fetchError
	}

	showRefDetails := execshell.CommandDetails{
		Arguments:        []string{gitShowRefSubcommandConstant, trackingBranchReferenceConstant, gitShowRefHashFlagConstant},
		WorkingDirectory: options.ChromiumPath,
	}
	showRefResult, showRefError := service.gitExecutor.ExecuteGit(executionContext, showRefDetails)
	if showRefError != nil {
		return outcome, showRefError
	}
	tipHash := strings.TrimSpace(showRefResult.StandardOutput)

	controlMessage := fmt.Sprintf(whitespaceCommitMessageTemplateConstant, hashFragment(tipHash))
	controlTransaction, controlError := service.runTransaction(executionContext, options, controlMessage, func(stager codereview.FileStager) error {
		controlFilePath := filepath.Join(options.ChromiumPath, filepath.FromSlash(controlFileRelativePathConstant))
		if appendError := appendControlMarker(controlFilePath); appendError != nil {
			return appendError
		}
		stager.Stage(controlFileRelativePathConstant)
		return nil
	})
	if controlTransaction != nil {
		outcome.Warnings = append(outcome.Warnings, controlTransaction.Warnings()...)
	}
	if controlError != nil {
		return outcome, controlError
	}

	controlIssue := controlTransaction.Issue()
	outcome.ControlIssue = annotateIssue(controlIssue, controlTransaction.BranchName(), options.SaveBranches)
	service.logger.Info(
		uploadedControlChangeMessageConstant,
		zap.String(structuredIssueFieldNameConstant, controlIssue),
		zap.String(structuredBranchFieldNameConstant, controlTransaction.BranchName()),
	)

	manifestMessage := fmt.Sprintf(manifestCommitMessageTemplateConstant, options.Revision)
	if controlURL := controlURLExpression.FindString(controlIssue); len(controlURL) > 0 {
		manifestMessage = fmt.Sprintf(manifestCommitMessageControlTemplate, options.Revision, controlURL)
	}

	manifestTransaction, manifestError := service.runTransaction(executionContext, options, manifestMessage, func(stager codereview.FileStager) error {
		manifestPath := filepath.Join(options.ChromiumPath, manifestFileNameConstant)
		if rewriteError := service.manifestEditor.Rewrite(options.Revision, options.CommitHash, manifestPath); rewriteError != nil {
			return rewriteError
		}
		stager.Stage(manifestFileNameConstant)
		return nil
	})
	if manifestTransaction != nil {
		outcome.Warnings = append(outcome.Warnings, manifestTransaction.Warnings()...)
	}
	if manifestError != nil {
		return outcome, manifestError
	}

	manifestIssue := manifestTransaction.Issue()
	outcome.ManifestIssue = annotateIssue(manifestIssue, manifestTransaction.BranchName(), options.SaveBranches)
	service.logger.Info(
		uploadedManifestChangeMessageConstant,
		zap.String(structuredIssueFieldNameConstant, manifestIssue),
		zap.String(structuredBranchFieldNameConstant, manifestTransaction.BranchName()),
	)

	return outcome, nil
}

func (service *Service) runTransaction(executionContext context.Context, options RollOptions, commitMessage string, body func(stager codereview.FileStager) error) (ReviewTransaction, error) {
	branchName := ""
	if options.SaveBranches {
		branchName = codereview.DeriveBranchName(commitMessage)
	}

	transaction, creationError := service.transactionFactory(codereview.TransactionOptions{
		RepositoryPath: options.ChromiumPath,
		CommitMessage:  commitMessage,
		BranchName:     branchName,
		BotNames:       options.BotNames,
		Verbose:        options.Verbose,
		SkipUpload:     options.SkipUpload,
	})
	if creationError != nil {
		return nil, creationError
	}

	if executionError := transaction.Execute(executionContext, body); executionError != nil {
		return transaction, executionError
	}

	return transaction, nil
}

func appendControlMarker(controlFilePath string) error {
	controlFile, openError := os.OpenFile(controlFilePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if openError != nil {
		return fmt.Errorf(controlFileAppendErrorTemplateConstant, controlFilePath, openError)
	}
	defer controlFile.Close()

	if _, writeError := controlFile.WriteString(controlMarkerContentConstant); writeError != nil {
		return fmt.Errorf(controlFileAppendErrorTemplateConstant, controlFilePath, writeError)
	}

	return nil
}

func annotateIssue(issue string, branchName string, saveBranches bool) string {
	if !saveBranches || len(branchName) == 0 {
		return issue
	}
	return fmt.Sprintf(preservedBranchAnnotationTemplate, issue, branchName)
}

func hashFragment(commitHash string) string {
	if len(commitHash) <= tipHashFragmentLengthConstant {
		return commitHash
	}
	return commitHash[:tipHashFragmentLengthConstant]
}
