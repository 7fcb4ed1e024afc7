package sleeper

import (
	"sync"
	"time"
)

// FakeClock never blocks. Every After call advances the fake time by d and
// records d, so tests can assert on the exact waits a loop performed.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func NewFake() *FakeClock {
	return &FakeClock{
		now: time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC),
	}
}

// OnSleep registers a hook run on every wait, before the wait completes. Tests
// use it to change the world while a loop is sleeping, or to cancel it.
func (f *FakeClock) OnSleep(fn func(d time.Duration)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSleep = fn
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.sleeps = append(f.sleeps, d)
	now := f.now
	hook := f.onSleep
	f.mu.Unlock()

	if hook != nil {
		hook(d)
	}

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Sleeps returns every duration waited on so far.
func (f *FakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// Elapsed is the sum of all waits.
func (f *FakeClock) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range f.Sleeps() {
		total += d
	}
	return total
}
