package telemetry

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrRegister = errors.ErrorCode("telemetry_register_failed")
)
