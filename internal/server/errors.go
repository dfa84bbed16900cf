package server

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrListen     errors.ErrorCode = "server_listen_failed"
	ErrClientGone errors.ErrorCode = "server_client_gone"
)

// Codes carried in JSON error responses.
const (
	ErrCodeRateLimit = "rate_limit_exceeded"
	ErrCodeInternal  = "internal_error"
	ErrCodeMethod    = "method_not_allowed"
)

var errFactory = errors.New()
