package depsfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

const (
	revisionFieldPatternConstant        = `"skia_revision": "[0-9]*",`
	hashFieldPatternConstant            = `"skia_hash": "[0-9a-f]*",`
	revisionFieldTemplateConstant       = `"skia_revision": "%d",`
	hashFieldTemplateConstant           = `"skia_hash": "%s",`
	temporaryManifestPrefixConstant     = "skia_deps_roll_tmp_"
	lineTerminatorByteConstant          = '\n'
	manifestOperationOpenConstant       = "open"
	manifestOperationReadConstant       = "read"
	manifestOperationWriteConstant      = "write"
	manifestOperationReplaceConstant    = "replace"
	manifestAccessErrorTemplateConstant = "failed to %s manifest %s: %s"
)

var (
	revisionFieldExpression = regexp.MustCompile(revisionFieldPatternConstant)
	hashFieldExpression     = regexp.MustCompile(hashFieldPatternConstant)
)

// ManifestAccessError reports a filesystem failure while rewriting a manifest.
type ManifestAccessError struct {
	Path      string
	Operation string
	Cause     error
}

// Error describes the failed manifest operation.
func (accessError ManifestAccessError) Error() string {
	return fmt.Sprintf(manifestAccessErrorTemplateConstant, accessError.Operation, accessError.Path, accessError.Cause)
}

// Unwrap exposes the underlying filesystem error.
func (accessError ManifestAccessError) Unwrap() error {
	return accessError.Cause
}

// Editor rewrites dependency pin fields inside a manifest file.
type Editor struct{}

// NewEditor constructs a manifest Editor.
func NewEditor() *Editor {
	return &Editor{}
}

// Rewrite replaces the revision and hash pin fields in the manifest at
// manifestPath with the provided values.
//
// Every line not matching either field pattern passes through byte for byte,
// and each pattern substitutes at most once per line. The rewritten content
// lands in a temporary file beside the manifest and replaces the original
// only after the full rewrite succeeds.
func (editor *Editor) Rewrite(revision int, commitHash string, manifestPath string) error {
	sourceFile, openError := os.Open(manifestPath)
	if openError != nil {
		return ManifestAccessError{Path: manifestPath, Operation: manifestOperationOpenConstant, Cause: openError}
	}
	defer sourceFile.Close()

	sourceInformation, statError := sourceFile.Stat()
	if statError != nil {
		return ManifestAccessError{Path: manifestPath, Operation: manifestOperationOpenConstant, Cause: statError}
	}

	temporaryFile, temporaryError := os.CreateTemp(filepath.Dir(manifestPath), temporaryManifestPrefixConstant)
	if temporaryError != nil {
		return ManifestAccessError{Path: manifestPath, Operation: manifestOperationWriteConstant, Cause: temporaryError}
	}
	temporaryPath := temporaryFile.Name()

	rewriteError := editor.rewriteLines(sourceFile, temporaryFile, revision, commitHash)
	closeError := temporaryFile.Close()

	if rewriteError != nil {
		os.Remove(temporaryPath)
		return ManifestAccessError{Path: manifestPath, Operation: manifestOperationWriteConstant, Cause: rewriteError}
	}
	if closeError != nil {
		os.Remove(temporaryPath)
		return ManifestAccessError{Path: manifestPath, Operation: manifestOperationWriteConstant, Cause: closeError}
	}

	if chmodError := os.Chmod(temporaryPath, sourceInformation.Mode().Perm()); chmodError != nil {
		os.Remove(temporaryPath)
		return ManifestAccessError{Path: manifestPath, Operation: manifestOperationReplaceConstant, Cause: chmodError}
	}

	if renameError := os.Rename(temporaryPath, manifestPath); renameError != nil {
		os.Remove(temporaryPath)
		return ManifestAccessError{Path: manifestPath, Operation: manifestOperationReplaceConstant, Cause: renameError}
	}

	return nil
}

func (editor *Editor) rewriteLines(source io.Reader, destination io.Writer, revision int, commitHash string) error {
	revisionReplacement := fmt.Sprintf(revisionFieldTemplateConstant, revision)
	hashReplacement := fmt.Sprintf(hashFieldTemplateConstant, commitHash)

	bufferedSource := bufio.NewReader(source)
	bufferedDestination := bufio.NewWriter(destination)

	for {
		manifestLine, readError := bufferedSource.ReadString(lineTerminatorByteConstant)
		if len(manifestLine) > 0 {
			rewrittenLine := replaceFirstMatch(revisionFieldExpression, manifestLine, revisionReplacement)
			rewrittenLine = replaceFirstMatch(hashFieldExpression, rewrittenLine, hashReplacement)
			if _, writeError := bufferedDestination.WriteString(rewrittenLine); writeError != nil {
				return writeError
			}
		}
		if readError == io.EOF {
			break
		}
		if readError != nil {
			return readError
		}
	}

	return bufferedDestination.Flush()
}

// replaceFirstMatch substitutes only the first pattern occurrence, leaving any
// later occurrences on the same line untouched.
func replaceFirstMatch(expression *regexp.Regexp, line string, replacement string) string {
	matchLocation := expression.FindStringIndex(line)
	if matchLocation == nil {
		return line
	}
	return line[:matchLocation[0]] + replacement + line[matchLocation[1]:]
}
