package errors

// Common error codes
const (
	// System errors
	ErrNotImplemented ErrorCode = "not_implemented"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Application errors
	ErrInitApp        ErrorCode = "init_app_failed"
	ErrDisplayFault   ErrorCode = "display_fault"
	ErrClockFault     ErrorCode = "clock_fault"
	ErrDeviceInfo     ErrorCode = "device_info_failed"
	ErrPollFailed     ErrorCode = "poll_failed"
	ErrLivenessFailed ErrorCode = "liveness_failed"

	// Operation errors
	ErrTimeout ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrNotImplemented:  "Operation not implemented",
	ErrAlreadyRunning:  "Another instance is already running",
	ErrInvalidConfig:   "Invalid configuration",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read config file",
	ErrInvalidInterval: "Invalid interval value",
	ErrInvalidLogLevel: "Invalid log level",
	ErrInitFailed:      "Initialization failed",
	ErrShutdownFailed:  "Shutdown failed",
	ErrInitApp:         "Failed to initialize application",
	ErrDisplayFault:    "Display refresh failed",
	ErrClockFault:      "Wall clock is not usable",
	ErrDeviceInfo:      "Failed to assemble device info",
	ErrPollFailed:      "Failed to serve pending request",
	ErrLivenessFailed:  "Failed to feed liveness signal",
	ErrTimeout:         "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
