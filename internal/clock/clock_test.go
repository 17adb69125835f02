package clock

import (
	"sync"
	"testing"
	"time"
)

func TestSystemClockIsUTC(t *testing.T) {
	t.Parallel()

	now := System().Now()
	if now.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %s", now.Location())
	}
}

func TestSinceTracksFixedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
	c := Fixed(start)

	if got := Since(c, start); got != 0 {
		t.Fatalf("expected no elapsed time on a frozen clock, got %s", got)
	}

	c.Add(90 * time.Second)
	if got := Since(c, start); got != 90*time.Second {
		t.Fatalf("expected 1m30s elapsed, got %s", got)
	}

	c.Set(start.Add(-time.Minute))
	if got := Since(c, start); got != -time.Minute {
		t.Fatalf("expected -1m after moving the clock back, got %s", got)
	}
}

func TestSinceOnSystemClockIsNonNegative(t *testing.T) {
	t.Parallel()

	c := System()
	start := c.Now()
	if got := Since(c, start); got < 0 {
		t.Fatalf("expected non-negative elapsed time, got %s", got)
	}
}

func TestFixedClockConcurrentAccess(t *testing.T) {
	c := Fixed(time.Unix(0, 0).UTC())
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Add(time.Second)
		}()
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
	}
	wg.Wait()

	if got := c.Now(); !got.Equal(time.Unix(32, 0).UTC()) {
		t.Fatalf("expected 32s after epoch, got %s", got)
	}
}
