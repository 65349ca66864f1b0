package clock

import "time"

// Clock supplies ledger time as unix seconds. Billing math works on
// uint64 second timestamps, never on time.Time directly.
type Clock interface {
	Now() uint64
}

type systemClock struct{}

func (systemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// System returns the wall clock.
func System() Clock {
	return systemClock{}
}

// Fixed is a test clock pinned to a settable instant.
type Fixed struct {
	Timestamp uint64
}

func (f *Fixed) Now() uint64 {
	return f.Timestamp
}

// Advance moves the fixed clock forward by delta seconds.
func (f *Fixed) Advance(delta uint64) {
	f.Timestamp += delta
}
