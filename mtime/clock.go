package mtime

import "time"

// Clock is the local notion of the current time.
type Clock interface {
	Now() UTime
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() UTime {
	return FromTime(time.Now())
}

// FuncClock adapts a time function, such as a test's fake clock, to [Clock].
type FuncClock func() time.Time

func (f FuncClock) Now() UTime {
	return FromTime(f())
}

// Compensation estimates how far the remote clock is ahead of the local clock,
// given a remote timestamp received in a round trip
// that started locally at sent and completed at received.
// The remote time is assumed to have been read halfway through the round trip.
func Compensation(sent, received, remote UTime) time.Duration {
	mid := sent + (received-min(sent, received))/2
	return remote.Sub(mid)
}

// Skewed reports whether remote is further than maxSkew from local
// in either direction. A non-positive maxSkew disables the check.
func Skewed(local, remote UTime, maxSkew time.Duration) bool {
	if maxSkew <= 0 {
		return false
	}
	d := remote.Sub(local)
	return d > maxSkew || d < -maxSkew
}
