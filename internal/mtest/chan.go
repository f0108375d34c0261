package mtest

import (
	"testing"
	"time"
)

// ScheduleTimeout is the time allowed for "soon" operations.
// It is generous enough for a loaded CI machine
// while still failing a hung test quickly.
const ScheduleTimeout = 2 * time.Second

// ReceiveSoon returns the next value from ch,
// failing the test if none arrives within [ScheduleTimeout].
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(ScheduleTimeout):
		t.Fatalf("no value received within %s", ScheduleTimeout)
	}

	panic("unreachable")
}
