package weather

import (
	"context"

	"codeberg.org/mutker/hostwatch/internal/reading"
)

// Provider looks up current weather. Fetch never fails: any problem is
// reported as a Snapshot whose fields are all Failed.
type Provider interface {
	Fetch(ctx context.Context) Snapshot
}

type Snapshot struct {
	Temperature reading.Float
	Humidity    reading.Float
	Condition   reading.Text
}

// Failed returns the snapshot used for every failed lookup.
func Failed() Snapshot {
	return Snapshot{
		Temperature: reading.Failed[float64](),
		Humidity:    reading.Failed[float64](),
		Condition:   reading.Failed[string](),
	}
}

// OK reports whether the lookup succeeded.
func (s Snapshot) OK() bool {
	return s.Temperature.IsMeasured()
}
