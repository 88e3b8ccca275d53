// Package locator resolves Skia revision numbers and commit hashes from the
// upstream tracking branch.
//
// When no checkout path is configured it shallow-clones the repository into a
// temporary directory that is removed unconditionally once the lookup
// finishes.
package locator
