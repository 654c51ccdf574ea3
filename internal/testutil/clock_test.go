package testutil

import (
	"testing"
	"time"
)

func TestFakeClock_FiresInOrder(t *testing.T) {
	c := NewFakeClock()
	var order []int

	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	c.AfterFunc(5*time.Second, func() { order = append(order, 5) })

	c.Advance(3 * time.Second)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected firing order: %v", order)
	}
	if c.Pending() != 1 {
		t.Errorf("expected 1 pending timer, got %d", c.Pending())
	}
}

func TestFakeClock_RearmDuringAdvance(t *testing.T) {
	c := NewFakeClock()
	fired := 0
	var tick func()
	tick = func() {
		fired++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3 * time.Second)
	if fired != 3 {
		t.Errorf("expected 3 ticks, got %d", fired)
	}
}

func TestFakeClock_Stop(t *testing.T) {
	c := NewFakeClock()
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("first Stop should report true")
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if c.StopCount() != 1 {
		t.Errorf("StopCount = %d, want 1", c.StopCount())
	}
}

func TestFakeClock_Now(t *testing.T) {
	c := NewFakeClock()
	start := c.Now()
	c.Advance(90 * time.Second)
	if got := c.Now().Sub(start); got != 90*time.Second {
		t.Errorf("elapsed = %v, want 90s", got)
	}
}
