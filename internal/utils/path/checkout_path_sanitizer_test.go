package pathutils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/rolldeps/rolldeps/internal/utils/path"
)

const (
	testCaseAbsolutePathSuffixConstant = "checkout-path-sanitizer"
	testCaseTildeRelativePathConstant  = "chromium/src"
	testCaseWhitespacePrefixConstant   = "  "
	testCaseWhitespaceSuffixConstant   = "\t"
	testCaseAbsoluteCaseNameConstant   = "absolute_path_trimmed"
	testCaseTildeCaseNameConstant      = "tilde_expanded"
	testCaseEmptyCaseNameConstant      = "empty_input"
	testCaseDotSegmentCaseNameConstant = "dot_segments_cleaned"
)

func TestCheckoutPathSanitizerNormalizesInputs(testInstance *testing.T) {
	homeDirectory, homeDirectoryError := os.UserHomeDir()
	require.NoError(testInstance, homeDirectoryError)

	temporaryDirectory := testInstance.TempDir()
	absolutePath := filepath.Join(temporaryDirectory, testCaseAbsolutePathSuffixConstant)
	tildeInput := filepath.Join("~", testCaseTildeRelativePathConstant)
	expandedTilde := filepath.Join(homeDirectory, testCaseTildeRelativePathConstant)

	testCases := []struct {
		name           string
		input          string
		expectedOutput string
	}{
		{
			name:           testCaseAbsoluteCaseNameConstant,
			input:          testCaseWhitespacePrefixConstant + absolutePath + testCaseWhitespaceSuffixConstant,
			expectedOutput: absolutePath,
		},
		{
			name:           testCaseTildeCaseNameConstant,
			input:          testCaseWhitespacePrefixConstant + tildeInput + testCaseWhitespaceSuffixConstant,
			expectedOutput: expandedTilde,
		},
		{
			name:           testCaseEmptyCaseNameConstant,
			input:          testCaseWhitespacePrefixConstant,
			expectedOutput: "",
		},
		{
			name:           testCaseDotSegmentCaseNameConstant,
			input:          filepath.Join(absolutePath, "nested", ".."),
			expectedOutput: absolutePath,
		},
	}

	sanitizer := pathutils.NewCheckoutPathSanitizer()

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			sanitized := sanitizer.Sanitize(testCase.input)
			require.Equal(subTest, testCase.expectedOutput, sanitized)
		})
	}
}
