package scraper

import "time"

type Config struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int

	// WarmupURL is visited after session start to let the browser settle
	// before the first site navigation. Empty disables the warm-up.
	WarmupURL     string
	WarmupTimeout time.Duration

	// SiteTimeout bounds one site's full scrape, navigation through
	// extraction. WaitTimeout bounds the wait for a results container.
	SiteTimeout time.Duration
	WaitTimeout time.Duration

	// RatePerSecond paces session starts across sites.
	RatePerSecond float64
	RateBurst     int

	LogsDir      string
	DebugCapture bool
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

func DefaultConfig() Config {
	return Config{
		Headless:      true,
		UserAgent:     defaultUserAgent,
		WindowWidth:   1920,
		WindowHeight:  1080,
		WarmupURL:     "https://www.google.co.in",
		WarmupTimeout: 20 * time.Second,
		SiteTimeout:   8 * time.Minute,
		WaitTimeout:   30 * time.Second,
		RatePerSecond: 0.5,
		RateBurst:     1,
		LogsDir:       "Logs",
		DebugCapture:  true,
	}
}
