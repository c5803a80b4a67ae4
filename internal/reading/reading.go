// Package reading holds the tri-state value used for every sampled field:
// a measured value, a value that does not exist on this host, or a value
// whose read failed.
package reading

// Status tells which of the three states a Value is in.
type Status uint8

const (
	StatusMeasured Status = iota
	StatusUnavailable
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusMeasured:
		return "measured"
	case StatusUnavailable:
		return "unavailable"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged variant. The zero Value is a measured zero.
type Value[T any] struct {
	v      T
	status Status
}

type (
	Float = Value[float64]
	Bool  = Value[bool]
	Text  = Value[string]
)

// Of returns a measured value.
func Of[T any](v T) Value[T] {
	return Value[T]{v: v, status: StatusMeasured}
}

// Unavailable returns a value marking a metric that does not exist here.
func Unavailable[T any]() Value[T] {
	return Value[T]{status: StatusUnavailable}
}

// Failed returns a value marking a metric whose read failed.
func Failed[T any]() Value[T] {
	return Value[T]{status: StatusError}
}

// Get returns the measured value and whether there is one.
func (r Value[T]) Get() (T, bool) {
	return r.v, r.status == StatusMeasured
}

func (r Value[T]) Status() Status {
	return r.status
}

func (r Value[T]) IsMeasured() bool {
	return r.status == StatusMeasured
}
