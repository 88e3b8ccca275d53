// Package execshell provides structured helpers for invoking the git
// command-line tool.
//
// It wraps os/exec with zap logging and per-invocation timeouts via
// ShellExecutor, exposes OSCommandRunner for default process execution, and
// defines the narrow command abstraction roll-deps uses so every git and
// git-cl invocation can be faked in tests.
package execshell
