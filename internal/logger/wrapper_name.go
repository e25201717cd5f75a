package logger

// WrapperName is the fixed name for this tool.
const WrapperName = "promptbatch"

// CurrentWrapperName returns the tool name (always "promptbatch").
func CurrentWrapperName() string { return WrapperName }

// PrimaryLogPrefix returns the filename prefix for log files.
func PrimaryLogPrefix() string { return WrapperName }
