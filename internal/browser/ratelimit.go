package browser

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pable/go-hltv-harvest/internal/config"
)

// idleReset is how long the limiter may sit unused before its adaptive
// delay snaps back to the minimum.
const idleReset = 10 * time.Minute

// Limiter serialises requests behind an adaptive delay. The delay shrinks
// multiplicatively after successes and doubles after challenges, jittered
// into [delay, 1.5*delay) before each request. Elapsed time since the
// previous request is credited against the sleep.
type Limiter struct {
	mu sync.Mutex

	minDelay       time.Duration
	maxDelay       time.Duration
	maxBackoff     time.Duration
	backoffFactor  float64
	recoveryFactor float64

	current time.Duration
	last    time.Time
}

// NewLimiter builds a limiter from the timing config, starting at min_delay.
func NewLimiter(cfg config.TimingConfig) *Limiter {
	return &Limiter{
		minDelay:       secs(cfg.MinDelay),
		maxDelay:       secs(cfg.MaxDelay),
		maxBackoff:     secs(cfg.MaxBackoff),
		backoffFactor:  cfg.BackoffFactor,
		recoveryFactor: cfg.RecoveryFactor,
		current:        secs(cfg.MinDelay),
	}
}

// Wait blocks until enough time has passed since the previous request.
// Returns early with the context error on cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	if !l.last.IsZero() && time.Since(l.last) > idleReset {
		l.current = l.minDelay
	}
	sleep := l.jittered() - time.Since(l.last)
	if l.last.IsZero() {
		sleep = 0
	}
	l.mu.Unlock()

	if sleep > 0 {
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	l.last = time.Now()
	l.mu.Unlock()
	return nil
}

// jittered widens the current delay into [d, 1.5d), clipped at max_delay
// until backoff has pushed the delay itself past that bound. Callers hold mu.
func (l *Limiter) jittered() time.Duration {
	delay := l.current + time.Duration(rand.Int63n(int64(l.current)/2+1))
	if delay > l.maxDelay && l.current < l.maxDelay {
		delay = l.maxDelay
	}
	return delay
}

// Success lets the delay recover toward the minimum.
func (l *Limiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = time.Duration(float64(l.current) * l.recoveryFactor)
	if l.current < l.minDelay {
		l.current = l.minDelay
	}
}

// Backoff doubles the delay after a challenge or rate-limit signal, up to
// the configured cap.
func (l *Limiter) Backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = time.Duration(float64(l.current) * l.backoffFactor)
	if l.current > l.maxBackoff {
		l.current = l.maxBackoff
	}
}

// Reset snaps the delay back to the minimum and forgets the last request.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = l.minDelay
	l.last = time.Time{}
}

// CurrentDelay returns the present adaptive delay.
func (l *Limiter) CurrentDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
