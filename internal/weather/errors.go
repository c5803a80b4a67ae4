package weather

import "codeberg.org/mutker/hostwatch/internal/errors"

const (
	ErrRequestFailed  = errors.ErrorCode("weather_request_failed")
	ErrBadStatus      = errors.ErrorCode("weather_bad_status")
	ErrInvalidPayload = errors.ErrorCode("weather_invalid_payload")
	ErrPanic          = errors.ErrorCode("weather_panic")
)
