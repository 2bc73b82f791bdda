package policy

import "time"

// Clock abstracts time for testability of expiry decisions.
type Clock interface {
	Now() time.Time
}

// systemClock implements Clock using the real system time.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
