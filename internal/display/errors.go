package display

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrUnknownAdapter errors.ErrorCode = "display_unknown_adapter"
	ErrWrite          errors.ErrorCode = "display_write_failed"
	ErrOpen           errors.ErrorCode = "display_open_failed"
)

var errFactory = errors.New()
