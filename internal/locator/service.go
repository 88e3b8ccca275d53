package locator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rolldeps/rolldeps/internal/execshell"
)

const (
	defaultRepositoryURLConstant       = "https://skia.googlesource.com/skia.git"
	defaultSearchDepthConstant         = 100
	tipLookupDepthConstant             = 1
	temporaryCloneDirectoryPrefix      = "git_skia_tmp_"
	trackingBranchReferenceConstant    = "origin/master"
	revisionMarkerPatternConstant      = `git-svn-id: http://skia\.googlecode\.com/svn/trunk@([0-9]+) `
	revisionMarkerGrepTemplateConstant = "git-svn-id: http://skia.googlecode.com/svn/trunk@%d "
	gitFetchSubcommandConstant         = "fetch"
	gitLogSubcommandConstant           = "log"
	gitShowRefSubcommandConstant       = "show-ref"
	gitCloneSubcommandConstant         = "clone"
	gitQuietFlagConstant               = "-q"
	gitOriginRemoteNameConstant        = "origin"
	gitLogCountFlagConstant            = "-n"
	gitLogSingleEntryValueConstant     = "1"
	gitLogBodyFormatFlagConstant       = "--format=format:%B"
	gitLogHashFormatFlagConstant       = "--format=format:%H"
	gitLogGrepFlagConstant             = "--grep"
	gitShowRefHashFlagConstant         = "--hash"
	gitCloneDepthFlagTemplateConstant  = "--depth=%d"
	gitCloneSingleBranchFlagConstant   = "--single-branch"

	markerMissingReasonConstant      = "revision marker missing from tracking branch tip"
	hashMissingReasonConstant        = "commit hash can not be found"
	negativeRevisionReasonConstant   = "revision number is negative"
	revisionNotFoundTemplateConstant = "revision lookup failed: %s"

	loggerRequiredMessageConstant      = "locator service requires a logger"
	gitExecutorRequiredMessageConstant = "locator service requires a git executor"

	temporaryCloneFailureTemplateConstant = "failed to create temporary clone directory: %w"

	debugResolvedRevisionMessageConstant = "Resolved dependency revision"
	structuredRevisionFieldNameConstant  = "revision"
	structuredHashFieldNameConstant      = "commit_hash"
)

var revisionMarkerExpression = regexp.MustCompile(revisionMarkerPatternConstant)

// TargetRevision identifies the revision a lookup should resolve.
//
// A zero TargetRevision requests the tracking branch tip.
type TargetRevision struct {
	Number    int
	Specified bool
}

// RevisionReference pairs a numeric revision with the commit hash pinning it.
type RevisionReference struct {
	Revision   int
	CommitHash string
}

// RevisionNotFoundError reports a lookup that produced no usable revision.
type RevisionNotFoundError struct {
	Reason string
}

// Error describes the failed lookup.
func (notFoundError RevisionNotFoundError) Error() string {
	return fmt.Sprintf(revisionNotFoundTemplateConstant, notFoundError.Reason)
}

// GitExecutor abstracts the git invocations the locator performs.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ServiceDependencies enumerates collaborators required by the locator Service.
type ServiceDependencies struct {
	Logger      *zap.Logger
	GitExecutor GitExecutor
}

// ServiceConfiguration controls where the locator looks for revisions.
type ServiceConfiguration struct {
	CheckoutPath  string
	RepositoryURL string
	SearchDepth   int
}

// Service resolves revision references against the upstream repository.
type Service struct {
	logger        *zap.Logger
	gitExecutor   GitExecutor
	checkoutPath  string
	repositoryURL string
	searchDepth   int
}

// NewService validates dependencies and constructs a locator Service.
func NewService(dependencies ServiceDependencies, configuration ServiceConfiguration) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, errors.New(loggerRequiredMessageConstant)
	}
	if dependencies.GitExecutor == nil {
		return nil, errors.New(gitExecutorRequiredMessageConstant)
	}

	repositoryURL := strings.TrimSpace(configuration.RepositoryURL)
	if len(repositoryURL) == 0 {
		repositoryURL = defaultRepositoryURLConstant
	}

	searchDepth := configuration.SearchDepth
	if searchDepth <= 0 {
		searchDepth = defaultSearchDepthConstant
	}

	service := &Service{
		logger:        dependencies.Logger,
		gitExecutor:   dependencies.GitExecutor,
		checkoutPath:  strings.TrimSpace(configuration.CheckoutPath),
		repositoryURL: repositoryURL,
		searchDepth:   searchDepth,
	}

	return service, nil
}

// Locate resolves the commit hash and revision number for the requested
// target.
//
// Without a configured checkout path the lookup clones into a temporary
// directory sized to the search: depth one for tip lookups, the configured
// search depth for historical ones. The temporary clone is removed whether or
// not the lookup succeeds.
func (service *Service) Locate(executionContext context.Context, target TargetRevision) (RevisionReference, error) {
	lookupDirectory := service.checkoutPath
	if len(lookupDirectory) > 0 {
		fetchDetails := execshell.CommandDetails{
			Arguments:        []string{gitFetchSubcommandConstant, gitQuietFlagConstant, gitOriginRemoteNameConstant},
			WorkingDirectory: lookupDirectory,
		}
		if _, fetchError := service.gitExecutor.ExecuteGit(executionContext, fetchDetails); fetchError != nil {
			return RevisionReference{}, fetchError
		}
	} else {
		cloneDepth := tipLookupDepthConstant
		if target.Specified {
			cloneDepth = service.searchDepth
		}

		temporaryDirectory, cloneError := service.cloneTemporary(executionContext, cloneDepth)
		if len(temporaryDirectory) > 0 {
			defer os.RemoveAll(temporaryDirectory)
		}
		if cloneError != nil {
			return RevisionReference{}, cloneError
		}
		lookupDirectory = temporaryDirectory
	}

	reference, lookupError := service.resolveReference(executionContext, lookupDirectory, target)
	if lookupError != nil {
		return RevisionReference{}, lookupError
	}

	service.logger.Debug(
		debugResolvedRevisionMessageConstant,
		zap.Int(structuredRevisionFieldNameConstant, reference.Revision),
		zap.String(structuredHashFieldNameConstant, reference.CommitHash),
	)

	return reference, nil
}

func (service *Service) cloneTemporary(executionContext context.Context, cloneDepth int) (string, error) {
	temporaryDirectory, temporaryError := os.MkdirTemp("", temporaryCloneDirectoryPrefix)
	if temporaryError != nil {
		return "", fmt.Errorf(temporaryCloneFailureTemplateConstant, temporaryError)
	}

	cloneDetails := execshell.CommandDetails{
		Arguments: []string{
			gitCloneSubcommandConstant,
			gitQuietFlagConstant,
			fmt.Sprintf(gitCloneDepthFlagTemplateConstant, cloneDepth),
			gitCloneSingleBranchFlagConstant,
			service.repositoryURL,
			temporaryDirectory,
		},
	}
	if _, cloneError := service.gitExecutor.ExecuteGit(executionContext, cloneDetails); cloneError != nil {
		return temporaryDirectory, cloneError
	}

	return temporaryDirectory, nil
}

func (service *Service) resolveReference(executionContext context.Context, lookupDirectory string, target TargetRevision) (RevisionReference, error) {
	if !target.Specified {
		return service.resolveTipReference(executionContext, lookupDirectory)
	}
	return service.resolveHistoricalReference(executionContext, lookupDirectory, target.Number)
}

func (service *Service) resolveTipReference(executionContext context.Context, lookupDirectory string) (RevisionReference, error) {
	logDetails := execshell.CommandDetails{
		Arguments: []string{
			gitLogSubcommandConstant,
			gitLogCountFlagConstant,
			gitLogSingleEntryValueConstant,
			gitLogBodyFormatFlagConstant,
			trackingBranchReferenceConstant,
		},
		WorkingDirectory: lookupDirectory,
	}
	logResult, logError := service.gitExecutor.ExecuteGit(executionContext, logDetails)
	if logError != nil {
		return RevisionReference{}, logError
	}

	markerMatch := revisionMarkerExpression.FindStringSubmatch(logResult.StandardOutput)
	if markerMatch == nil {
		return RevisionReference{}, RevisionNotFoundError{Reason: markerMissingReasonConstant}
	}

	revision, parseError := strconv.Atoi(markerMatch[1])
	if parseError != nil {
		return RevisionReference{}, RevisionNotFoundError{Reason: markerMissingReasonConstant}
	}

	showRefDetails := execshell.CommandDetails{
		Arguments: []string{
			gitShowRefSubcommandConstant,
			trackingBranchReferenceConstant,
			gitShowRefHashFlagConstant,
		},
		WorkingDirectory: lookupDirectory,
	}
	showRefResult, showRefError := service.gitExecutor.ExecuteGit(executionContext, showRefDetails)
	if showRefError != nil {
		return RevisionReference{}, showRefError
	}

	return service.validateReference(revision, strings.TrimSpace(showRefResult.StandardOutput))
}

func (service *Service) resolveHistoricalReference(executionContext context.Context, lookupDirectory string, revision int) (RevisionReference, error) {
	markerFilter := fmt.Sprintf(revisionMarkerGrepTemplateConstant, revision)
	logDetails := execshell.CommandDetails{
		Arguments: []string{
			gitLogSubcommandConstant,
			gitLogGrepFlagConstant,
			markerFilter,
			gitLogHashFormatFlagConstant,
			trackingBranchReferenceConstant,
		},
		WorkingDirectory: lookupDirectory,
	}
	logResult, logError := service.gitExecutor.ExecuteGit(executionContext, logDetails)
	if logError != nil {
		return RevisionReference{}, logError
	}

	matchedHashes := strings.Fields(logResult.StandardOutput)
	resolvedHash := ""
	if len(matchedHashes) > 0 {
		resolvedHash = matchedHashes[0]
	}

	return service.validateReference(revision, resolvedHash)
}

func (service *Service) validateReference(revision int, commitHash string) (RevisionReference, error) {
	if revision < 0 {
		return RevisionReference{}, RevisionNotFoundError{Reason: negativeRevisionReasonConstant}
	}
	if len(commitHash) == 0 {
		return RevisionReference{}, RevisionNotFoundError{Reason: hashMissingReasonConstant}
	}
	return RevisionReference{Revision: revision, CommitHash: commitHash}, nil
}
