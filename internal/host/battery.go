package host

import (
	"codeberg.org/mutker/hostwatch/internal/errors"
	"codeberg.org/mutker/hostwatch/internal/logger"
	"codeberg.org/mutker/hostwatch/internal/reading"
	"github.com/distatus/battery"
)

// sampleBattery reports the combined charge of all batteries. A host
// without batteries is Unavailable. Any failure of a field the charge is
// computed from marks both fields Failed; the cause is only logged.
func (s *Sampler) sampleBattery() (percent reading.Float, plugged reading.Bool) {
	batteries, err := s.getBatteries()
	if err != nil && !usable(err) {
		logger.Debug().
			Str("error_code", string(ErrBatteryRead)).
			Err(err).
			Msg("Battery read failed")
		return reading.Failed[float64](), reading.Failed[bool]()
	}

	if len(batteries) == 0 {
		return reading.Unavailable[float64](), reading.Unavailable[bool]()
	}

	var current, full float64
	onExternalPower := true
	for _, b := range batteries {
		if b == nil {
			continue
		}
		current += b.Current
		full += b.Full
		if b.State.Raw == battery.Discharging || b.State.Raw == battery.Empty {
			onExternalPower = false
		}
	}

	if full <= 0 {
		logger.Debug().
			Str("error_code", string(ErrBatteryRead)).
			AnErr("error", errors.New().WithMessage(ErrBatteryRead, "battery reports no full capacity")).
			Msg("Battery read failed")
		return reading.Failed[float64](), reading.Failed[bool]()
	}

	return reading.Of(clampPercent(current / full * 100)), reading.Of(onExternalPower)
}

// usable reports whether err from battery.GetAll left State, Current and
// Full readable for every battery. Partial errors on other fields, such as
// Voltage or ChargeRate, do not affect the charge.
func usable(err error) bool {
	errs, ok := err.(battery.Errors)
	if !ok {
		return false
	}

	for _, e := range errs {
		if e == nil {
			continue
		}
		partial, ok := e.(battery.ErrPartial)
		if !ok {
			return false
		}
		if partial.State != nil || partial.Current != nil || partial.Full != nil {
			return false
		}
	}

	return true
}
