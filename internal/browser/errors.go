package browser

import (
	"errors"
	"fmt"
)

// Sentinel errors for fetch outcomes the pipeline reacts to differently.
var (
	// ErrChallengeServed means the anti-bot layer returned an interstitial
	// instead of the page. Retryable with backoff; batch-fatal past the bound.
	ErrChallengeServed = errors.New("challenge served")

	// ErrContentTooShort means the rendered document was below the minimum
	// content threshold. One in-place re-extraction is attempted before it
	// escalates to ErrChallengeServed.
	ErrContentTooShort = errors.New("content too short")

	// ErrPageMissing means the site returned its 404 page. Never retried;
	// the work item is marked failed permanently.
	ErrPageMissing = errors.New("page missing")

	// ErrUnavailable means the browser could not be launched at all, e.g.
	// no display for the non-headless window.
	ErrUnavailable = errors.New("transport unavailable")
)

// TransportError wraps an unclassified browser failure. It is batch-fatal:
// the orchestrator discards the whole batch and leaves its items pending.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsBatchFatal reports whether err should abort the current batch rather
// than fail a single item.
func IsBatchFatal(err error) bool {
	var te *TransportError
	return errors.Is(err, ErrChallengeServed) || errors.As(err, &te)
}
