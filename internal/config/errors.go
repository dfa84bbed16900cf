package config

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrBindFlags       = errors.ErrBindFlags
	ErrReadConfig      = errors.ErrReadConfig
	ErrInvalidInterval = errors.ErrInvalidInterval
	ErrInvalidLogLevel = errors.ErrInvalidLogLevel
	ErrParseFlags      = errors.ErrorCode("config_parse_flags_failed")
)

var errFactory = errors.New()
