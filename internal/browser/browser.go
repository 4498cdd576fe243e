// Package browser is the fetch transport: one long-lived real Chrome
// instance driven over the DevTools protocol, with challenge detection,
// an adaptive rate limiter and bounded retry.
package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/pable/go-hltv-harvest/internal/config"
)

// challengeTitles are document titles that identify an anti-bot
// interstitial instead of a real page.
var challengeTitles = []string{
	"Just a moment...",
	"Attention Required! | Cloudflare",
	"Access denied",
	"Checking your browser",
}

// notFoundMarker appears in the title of the site's 404 page.
const notFoundMarker = "Page not found"

// Retry backoff bounds for challenge/transient failures.
const (
	retryInitialWait = 10 * time.Second
	retryMaxWait     = 120 * time.Second
	retryJitterMax   = 5 * time.Second
)

// Stats are the transport's monotonic counters.
type Stats struct {
	Requests     uint64
	Successes    uint64
	CurrentDelay time.Duration
}

// Transport owns the single browser instance for the process lifetime.
// All fetches are serialised through its rate limiter; Fetch must not be
// called from more than one goroutine.
type Transport struct {
	fetchCfg config.FetchConfig
	limiter  *Limiter
	log      zerolog.Logger

	mu          sync.Mutex
	started     bool
	closed      bool
	profileDir  string
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	requests  uint64
	successes uint64
}

// New builds a transport; Start must be called before Fetch.
func New(timing config.TimingConfig, fetch config.FetchConfig, log zerolog.Logger) *Transport {
	return &Transport{
		fetchCfg: fetch,
		limiter:  NewLimiter(timing),
		log:      log.With().Str("component", "browser").Logger(),
	}
}

// Start launches the browser with one off-screen tab and confirms it is
// ready. The window is real (non-headless): the anti-bot layer fingerprints
// headless Chrome, so the process must run against a display or a virtual
// one such as Xvfb.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	profileDir, err := os.MkdirTemp("", "hltvharvest-profile-*")
	if err != nil {
		return fmt.Errorf("%w: create profile dir: %v", ErrUnavailable, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("window-position", "-2400,-2400"), // keep the tab off-screen
		chromedp.WindowSize(1920, 1080),
		chromedp.UserDataDir(profileDir),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Navigating to about:blank forces the browser process to launch now,
	// so a missing display surfaces here rather than on the first fetch.
	readyCtx, cancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(readyCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		allocCancel()
		os.RemoveAll(profileDir)
		return fmt.Errorf("%w: launch browser: %v", ErrUnavailable, err)
	}

	t.profileDir = profileDir
	t.allocCancel = allocCancel
	t.tabCtx = tabCtx
	t.tabCancel = tabCancel
	t.started = true
	t.log.Info().Str("profile", profileDir).Msg("browser started")
	return nil
}

// Fetch navigates the tab to url and returns the rendered document's outer
// HTML. Challenges and transient failures are retried with exponential
// jitter up to the configured bound; ErrPageMissing is returned immediately.
func (t *Transport) Fetch(ctx context.Context, url string) (string, error) {
	t.mu.Lock()
	if !t.started || t.closed {
		t.mu.Unlock()
		return "", fmt.Errorf("%w: transport not started", ErrUnavailable)
	}
	t.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= t.fetchCfg.MaxRetries; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}

		t.mu.Lock()
		t.requests++
		t.mu.Unlock()

		html, err := t.fetchOnce(ctx, url)
		if err == nil {
			t.limiter.Success()
			t.mu.Lock()
			t.successes++
			t.mu.Unlock()
			return html, nil
		}
		if errors.Is(err, ErrPageMissing) {
			return "", err
		}

		lastErr = err
		t.limiter.Backoff()

		if attempt == t.fetchCfg.MaxRetries {
			break
		}
		wait := retryInitialWait << (attempt - 1)
		if wait > retryMaxWait {
			wait = retryMaxWait
		}
		wait += time.Duration(rand.Int63n(int64(retryJitterMax)))
		t.log.Warn().Str("url", url).Int("attempt", attempt).
			Dur("wait", wait).Err(err).Msg("fetch retry")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", t.fetchCfg.MaxRetries, lastErr)
}

// fetchOnce performs a single navigate-and-extract cycle.
func (t *Transport) fetchOnce(ctx context.Context, url string) (string, error) {
	wall := secs(t.fetchCfg.PageLoadWait+t.fetchCfg.ChallengeWait) + 30*time.Second
	runCtx, cancel := context.WithTimeout(t.tabCtx, wall)
	defer cancel()

	// Propagate caller cancellation into the tab run.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var title, html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(secs(t.fetchCfg.PageLoadWait)),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}

	if strings.Contains(title, notFoundMarker) {
		return "", fmt.Errorf("%w: %s", ErrPageMissing, url)
	}
	if isChallengeTitle(title) {
		return "", fmt.Errorf("%w: title %q", ErrChallengeServed, title)
	}
	if len(html) >= t.fetchCfg.MinContentChars {
		return html, nil
	}

	// Short content: give the page one more settle window and re-extract.
	t.log.Debug().Str("url", url).Int("chars", len(html)).Msg("content too short, re-extracting")
	err = chromedp.Run(runCtx,
		chromedp.Sleep(secs(t.fetchCfg.ChallengeWait)),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	if isChallengeTitle(title) {
		return "", fmt.Errorf("%w: title %q", ErrChallengeServed, title)
	}
	if len(html) < t.fetchCfg.MinContentChars {
		return "", fmt.Errorf("%w (%d chars): %w", ErrContentTooShort, len(html), ErrChallengeServed)
	}
	return html, nil
}

// Close tears down the browser and its temporary profile. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.started {
		t.closed = true
		return nil
	}
	t.closed = true

	t.tabCancel()
	t.allocCancel()
	if t.profileDir != "" {
		if err := os.RemoveAll(t.profileDir); err != nil {
			return fmt.Errorf("remove profile dir: %w", err)
		}
	}
	t.log.Info().Msg("browser closed")
	return nil
}

// Stats returns the transport's monotonic counters and current delay.
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Requests:     t.requests,
		Successes:    t.successes,
		CurrentDelay: t.limiter.CurrentDelay(),
	}
}

func isChallengeTitle(title string) bool {
	for _, c := range challengeTitles {
		if strings.Contains(title, c) {
			return true
		}
	}
	return false
}
