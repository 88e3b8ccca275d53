package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	logLevelContextKeyConstant              = commandContextKey("logLevel")
	logFormatContextKeyConstant             = commandContextKey("logFormat")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// WithLogLevel attaches the effective log level to the provided context.
func (accessor CommandContextAccessor) WithLogLevel(parentContext context.Context, logLevel LogLevel) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, logLevelContextKeyConstant, logLevel)
}

// LogLevel extracts the effective log level from the provided context.
func (accessor CommandContextAccessor) LogLevel(executionContext context.Context) (LogLevel, bool) {
	if executionContext == nil {
		return "", false
	}
	logLevel, logLevelAvailable := executionContext.Value(logLevelContextKeyConstant).(LogLevel)
	if !logLevelAvailable {
		return "", false
	}
	return logLevel, true
}

// WithLogFormat attaches the effective log format to the provided context.
func (accessor CommandContextAccessor) WithLogFormat(parentContext context.Context, logFormat LogFormat) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, logFormatContextKeyConstant, logFormat)
}

// LogFormat extracts the effective log format from the provided context.
func (accessor CommandContextAccessor) LogFormat(executionContext context.Context) (LogFormat, bool) {
	if executionContext == nil {
		return "", false
	}
	logFormat, logFormatAvailable := executionContext.Value(logFormatContextKeyConstant).(LogFormat)
	if !logFormatAvailable {
		return "", false
	}
	return logFormat, true
}
