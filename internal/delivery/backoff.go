package delivery

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retrySchedule walks a fixed, pre-configured list of back-off intervals.
// Unlike backoff.NewExponentialBackOff it never jitters or grows: the
// operator-configured schedule is the schedule. NextBackOff returns
// backoff.Stop once the list is exhausted, which the worker reads as "no
// attempts remain".
type retrySchedule struct {
	intervals []time.Duration
	next      int
}

var _ backoff.BackOff = (*retrySchedule)(nil)

func newRetrySchedule(intervals []time.Duration) *retrySchedule {
	return &retrySchedule{intervals: intervals}
}

func (s *retrySchedule) NextBackOff() time.Duration {
	if s.next >= len(s.intervals) {
		return backoff.Stop
	}
	d := s.intervals[s.next]
	s.next++
	return d
}

func (s *retrySchedule) Reset() {
	s.next = 0
}
