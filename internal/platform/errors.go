package platform

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrUnavailable errors.ErrorCode = "platform_attribute_unavailable"
	ErrAccessor    errors.ErrorCode = "platform_accessor_failed"
	ErrNoAddress   errors.ErrorCode = "platform_no_address"
)

var errFactory = errors.New()
