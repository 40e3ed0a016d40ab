// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNow(t *testing.T) {
	fake := Fake(testEpoch)
	if got := fake.Now(); !got.Equal(testEpoch) {
		t.Errorf("Now() = %v, want %v", got, testEpoch)
	}
	fake.Advance(3 * time.Second)
	if got := fake.Now(); !got.Equal(testEpoch.Add(3 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, testEpoch.Add(3*time.Second))
	}
}

func TestAfterFuncFiresOnAdvance(t *testing.T) {
	fake := Fake(testEpoch)
	fired := 0
	fake.AfterFunc(time.Second, func() { fired++ })

	fake.Advance(500 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("timer fired %d times before deadline", fired)
	}
	fake.Advance(500 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	// Further advances must not re-fire a one-shot timer.
	fake.Advance(10 * time.Second)
	if fired != 1 {
		t.Errorf("fired = %d after extra advance, want 1", fired)
	}
}

func TestAfterFuncImmediateWhenNonPositive(t *testing.T) {
	fake := Fake(testEpoch)
	fired := false
	fake.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Error("AfterFunc(0) did not fire synchronously")
	}
}

func TestTimerStop(t *testing.T) {
	fake := Fake(testEpoch)
	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Stop() = false for an active timer, want true")
	}
	fake.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}
}

func TestTimerReset(t *testing.T) {
	fake := Fake(testEpoch)
	fired := 0
	timer := fake.AfterFunc(time.Second, func() { fired++ })

	// Reset pushes the deadline out: the original deadline must not fire.
	if !timer.Reset(3 * time.Second) {
		t.Error("Reset() = false for an active timer, want true")
	}
	fake.Advance(2 * time.Second)
	if fired != 0 {
		t.Fatalf("fired = %d after superseded deadline, want 0", fired)
	}
	fake.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	// Reset after firing re-arms the timer.
	if timer.Reset(time.Second) {
		t.Error("Reset() = true for a fired timer, want false")
	}
	fake.Advance(time.Second)
	if fired != 2 {
		t.Errorf("fired = %d after re-arm, want 2", fired)
	}
}

func TestAdvanceFiresInDeadlineOrder(t *testing.T) {
	fake := Fake(testEpoch)
	var order []int
	fake.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	fake.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	fake.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	fake.Advance(5 * time.Second)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("fired %d timers, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestCallbackSchedulingWithinAdvance(t *testing.T) {
	fake := Fake(testEpoch)
	var fired []string
	fake.AfterFunc(time.Second, func() {
		fired = append(fired, "first")
		fake.AfterFunc(time.Second, func() {
			fired = append(fired, "second")
		})
	})

	// A single Advance spanning both deadlines fires the chained timer too.
	fake.Advance(3 * time.Second)
	if len(fired) != 2 || fired[0] != "first" || fired[1] != "second" {
		t.Errorf("fired = %v, want [first second]", fired)
	}
}

func TestAfterChannel(t *testing.T) {
	fake := Fake(testEpoch)
	ch := fake.After(time.Second)

	select {
	case <-ch:
		t.Fatal("After channel received before deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case got := <-ch:
		if !got.Equal(testEpoch.Add(time.Second)) {
			t.Errorf("received %v, want %v", got, testEpoch.Add(time.Second))
		}
	default:
		t.Fatal("After channel did not receive at deadline")
	}
}

func TestPendingCount(t *testing.T) {
	fake := Fake(testEpoch)
	if got := fake.PendingCount(); got != 0 {
		t.Fatalf("PendingCount = %d, want 0", got)
	}
	timer := fake.AfterFunc(time.Second, func() {})
	fake.AfterFunc(2*time.Second, func() {})
	if got := fake.PendingCount(); got != 2 {
		t.Fatalf("PendingCount = %d, want 2", got)
	}
	timer.Stop()
	if got := fake.PendingCount(); got != 1 {
		t.Fatalf("PendingCount after Stop = %d, want 1", got)
	}
	fake.Advance(5 * time.Second)
	if got := fake.PendingCount(); got != 0 {
		t.Errorf("PendingCount after Advance = %d, want 0", got)
	}
}
