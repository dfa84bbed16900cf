package sensor

import "codeberg.org/mutker/envmon/internal/errors"

const (
	ErrBusOpenFailed     errors.ErrorCode = "sensor_bus_open_failed"
	ErrSensorInitFailed  errors.ErrorCode = "sensor_init_failed"
	ErrSensorReadyFailed errors.ErrorCode = "sensor_ready_failed"
	ErrSensorReadFailed  errors.ErrorCode = "sensor_read_failed"
	ErrSensorIncomplete  errors.ErrorCode = "sensor_incomplete_sample"
	ErrDriverPanic       errors.ErrorCode = "sensor_driver_panic"
	ErrUnknownKind       errors.ErrorCode = "sensor_unknown_kind"
)

var errFactory = errors.New()
