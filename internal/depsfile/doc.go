// Package depsfile rewrites the pinned Skia revision and hash fields inside a
// Chromium DEPS manifest.
//
// The Editor streams the manifest line by line, substitutes at most one
// revision field and one hash field per line, and atomically replaces the
// original file so a failed rewrite never leaves a partially written manifest.
package depsfile
