package scd4x

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrCRC errors.ErrorCode = "scd4x_crc_mismatch"
)

var errFactory = errors.New()
