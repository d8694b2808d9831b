package callback

import "time"

// RetryPolicy decides whether a failed delivery is due for another attempt.
// The dispatcher never consults it; the redelivery job does.
type RetryPolicy interface {
	// Due reports whether a delivery with the given number of attempts,
	// last tried at last, should be retried at now.
	Due(attempts int, last time.Time, now time.Time) bool
	Enabled() bool
}

// NoRetry leaves failed deliveries to operators.
type NoRetry struct{}

func (NoRetry) Due(int, time.Time, time.Time) bool { return false }
func (NoRetry) Enabled() bool                      { return false }

// LinearBackoff retries every Interval until Max attempts have been made.
type LinearBackoff struct {
	Max      int
	Interval time.Duration
}

func (l LinearBackoff) Due(attempts int, last time.Time, now time.Time) bool {
	return attempts < l.Max && !now.Before(last.Add(l.Interval))
}

func (l LinearBackoff) Enabled() bool { return l.Max > 0 }

// PolicyFor returns NoRetry unless maxAttempts is positive.
func PolicyFor(maxAttempts int, interval time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		return NoRetry{}
	}
	return LinearBackoff{Max: maxAttempts, Interval: interval}
}
