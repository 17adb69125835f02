// Package clock is the application's time source. It wraps the luci clock so
// production code reads UTC wall time and tests drive a testclock by hand.
package clock

import (
	"time"

	luciclock "go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/clock/testclock"
)

// Clock reports the current time.
type Clock = luciclock.Clock

type utcClock struct {
	luciclock.Clock
}

func (c utcClock) Now() time.Time {
	return c.Clock.Now().UTC()
}

// System returns the system clock, normalised to UTC.
func System() Clock {
	return utcClock{luciclock.GetSystemClock()}
}

// Fixed returns a test clock frozen at initial. It moves only through Add and Set.
func Fixed(initial time.Time) testclock.TestClock {
	return testclock.New(initial)
}

// Since returns the time elapsed on c since t.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
