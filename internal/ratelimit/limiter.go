// Package ratelimit tracks failed verification attempts per (subject, origin)
// key. Counters use fixed-window semantics: the window opens on the first
// failure and every counter expires after the decay interval.
package ratelimit

import (
	"context"
	"net"
	"time"
)

// Limiter is a check/increment/reset attempt counter.
type Limiter interface {
	// TooManyAttempts reports whether the key has reached maxAttempts
	// within the current window.
	TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error)
	// Hit records a failed attempt and arms the decay window on the first
	// hit for the key.
	Hit(ctx context.Context, key string, decay time.Duration) error
	// Clear resets the counter for the key.
	Clear(ctx context.Context, key string) error
}

// AttemptKey builds the counter key for a subject and client origin. The
// origin may carry a port (net/http sets RemoteAddr to ip:port); it is
// stripped so the counter accumulates across connections from the same host.
func AttemptKey(subjectID, clientIP string) string {
	if host, _, err := net.SplitHostPort(clientIP); err == nil {
		clientIP = host
	}
	return "otp_limit:" + subjectID + clientIP
}
