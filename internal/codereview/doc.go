// Package codereview implements the scoped branch transaction used to upload
// a change for review.
//
// A BranchTransaction stashes local modifications, creates an isolated branch
// from the upstream tracking tip, lets the caller mutate and stage files,
// commits and uploads the result, and then restores the original branch and
// stash state. Restoration runs on every exit path; individual restoration
// failures are collected as warnings instead of aborting the remaining steps.
package codereview
