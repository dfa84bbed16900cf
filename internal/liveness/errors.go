package liveness

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrUnknownKind errors.ErrorCode = "liveness_unknown_kind"
	ErrDevice      errors.ErrorCode = "liveness_device_failed"
	ErrNotify      errors.ErrorCode = "liveness_notify_failed"
)

var errFactory = errors.New()
