package status

import "time"

// Timing holds every duration the animations use.
type Timing struct {
	SelfTestRed   time.Duration
	SelfTestGreen time.Duration
	SelfTestBlue  time.Duration

	ConfigSuccessTimeout time.Duration
	VolumeTimeout        time.Duration

	DialogOn    time.Duration
	DialogOff   time.Duration
	DialogTotal time.Duration

	BreathInterval time.Duration
	StandbyStep    time.Duration

	WakeFlashOn  time.Duration
	WakeFlashOff time.Duration
	WakeFlashes  int
	WakeWindow   time.Duration
}

// DefaultTiming matches the values the ring shipped with.
func DefaultTiming() Timing {
	return Timing{
		SelfTestRed:          1000 * time.Millisecond,
		SelfTestGreen:        1000 * time.Millisecond,
		SelfTestBlue:         1000 * time.Millisecond,
		ConfigSuccessTimeout: 2000 * time.Millisecond,
		VolumeTimeout:        2000 * time.Millisecond,
		DialogOn:             100 * time.Millisecond,
		DialogOff:            150 * time.Millisecond,
		DialogTotal:          5000 * time.Millisecond,
		BreathInterval:       15 * time.Millisecond,
		StandbyStep:          120 * time.Millisecond,
		WakeFlashOn:          120 * time.Millisecond,
		WakeFlashOff:         120 * time.Millisecond,
		WakeFlashes:          2,
		WakeWindow:           8000 * time.Millisecond,
	}
}

// DialogBlinkCount is how many on-phases a Dialog shows before going idle.
func (t Timing) DialogBlinkCount() int {
	period := t.DialogOn + t.DialogOff
	if period <= 0 {
		return 0
	}
	return int(t.DialogTotal / period)
}

// WakeHold is how long Wake stays solid blue after its flashes.
func (t Timing) WakeHold() time.Duration {
	hold := t.WakeWindow - time.Duration(t.WakeFlashes)*(t.WakeFlashOn+t.WakeFlashOff)
	if hold < 0 {
		return 0
	}
	return hold
}
