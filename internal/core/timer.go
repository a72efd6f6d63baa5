package core

import "time"

// Stopwatch accumulates wall time across evolution runs.
type Stopwatch struct {
	total time.Duration
	last  time.Duration
	runs  int
	now   func() time.Time
}

// NewStopwatch returns a stopwatch reading the system clock.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{now: time.Now}
}

// Time runs fn and records its duration, which is also returned.
func (s *Stopwatch) Time(fn func() error) (time.Duration, error) {
	start := s.now()
	err := fn()
	s.last = s.now().Sub(start)
	s.total += s.last
	s.runs++
	return s.last, err
}

// Last returns the duration of the most recent run.
func (s *Stopwatch) Last() time.Duration { return s.last }

// Total returns the summed duration of all runs.
func (s *Stopwatch) Total() time.Duration { return s.total }

// Mean returns the average run duration, or zero before the first run.
func (s *Stopwatch) Mean() time.Duration {
	if s.runs == 0 {
		return 0
	}
	return s.total / time.Duration(s.runs)
}
