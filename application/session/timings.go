package session

import (
	"time"

	"ulogscraper-go/infrastructure/settings"
)

// Timings bounds every wait of the login and navigation flows.
type Timings struct {
	// LoginTimeout bounds the wait for the dashboard after submitting credentials.
	LoginTimeout time.Duration
	// PageTimeout bounds each wait for document.readyState == "complete".
	PageTimeout time.Duration
	// PasswordWait is how long each password candidate is polled for.
	PasswordWait time.Duration

	// Settle follows every page load, before any element is probed.
	Settle time.Duration
	// Content is the extra pause on pages that render their lists late.
	Content time.Duration
	// Form separates the continue click from the password probe.
	Form time.Duration
	// Search separates typing the query from submitting it.
	Search time.Duration
	// Download is left for the download to start after the final click.
	Download time.Duration
	// Logs is the pause on the logs page before its URL is read.
	Logs time.Duration
}

// DefaultTimings returns the timings used against the live dashboard.
func DefaultTimings() Timings {
	return Timings{
		LoginTimeout: 180 * time.Second,
		PageTimeout:  30 * time.Second,
		PasswordWait: 5 * time.Second,
		Settle:       5 * time.Second,
		Content:      8 * time.Second,
		Form:         3 * time.Second,
		Search:       1 * time.Second,
		Download:     5 * time.Second,
		Logs:         3 * time.Second,
	}
}

// TimingsFromSettings copies the timeouts and delays of s.
func TimingsFromSettings(s *settings.Settings) Timings {
	return Timings{
		LoginTimeout: s.Timeouts.Login,
		PageTimeout:  s.Timeouts.Page,
		PasswordWait: s.Timeouts.Password,
		Settle:       s.Delays.Settle,
		Content:      s.Delays.Content,
		Form:         s.Delays.Form,
		Search:       s.Delays.Search,
		Download:     s.Delays.Download,
		Logs:         s.Delays.Logs,
	}
}
