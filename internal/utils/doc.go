// Package utils exposes reusable helpers consumed by the roll-deps command.
//
// It houses the ConfigurationLoader and LoggerFactory abstractions that
// integrate Viper, environment variables, and zap logging, plus the
// CommandContextAccessor used to thread invocation settings through Cobra
// command contexts.
package utils
