package bme680

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrChipID      errors.ErrorCode = "bme680_chip_id_mismatch"
	ErrCalibration errors.ErrorCode = "bme680_calibration_failed"
	ErrTimeout     errors.ErrorCode = "bme680_measurement_timeout"
)

var errFactory = errors.New()
