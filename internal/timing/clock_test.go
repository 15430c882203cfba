package timing

import (
	"reflect"
	"testing"
	"time"
)

func TestFakeClockRecordsSleeps(t *testing.T) {
	clock := NewFakeClock()
	start := clock.Now()

	clock.Sleep(30 * time.Millisecond)
	clock.Advance(time.Second)
	clock.Sleep(100 * time.Millisecond)

	if got := clock.Now().Sub(start); got != 1130*time.Millisecond {
		t.Errorf("Expected clock to move 1.13s, got %v", got)
	}
	want := []time.Duration{30 * time.Millisecond, 100 * time.Millisecond}
	if !reflect.DeepEqual(clock.Sleeps(), want) {
		t.Errorf("Expected sleeps %v, got %v", want, clock.Sleeps())
	}
}

func TestFakeClockSleepsIsACopy(t *testing.T) {
	clock := NewFakeClock()
	clock.Sleep(time.Millisecond)

	sleeps := clock.Sleeps()
	sleeps[0] = time.Hour

	if clock.Sleeps()[0] != time.Millisecond {
		t.Error("Expected Sleeps to return a copy")
	}
}

func TestFakeClockSleepFiresTimers(t *testing.T) {
	clock := NewFakeClock()
	timer := clock.NewTimer(50 * time.Millisecond)

	clock.Sleep(50 * time.Millisecond)

	select {
	case <-timer.Chan():
	case <-time.After(time.Second):
		t.Fatal("Expected timer to fire once the clock slept past it")
	}
}
