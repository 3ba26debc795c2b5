package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/phuslu/log"
)

// BrowserFetcher renders pages in headless Chrome before reading the HTML.
// Stores that build their catalogue with JavaScript need it.
type BrowserFetcher struct {
	timeout     time.Duration
	scrollSteps int
	settle      time.Duration

	mu              sync.Mutex
	started         bool
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
}

// NewBrowserFetcher prepares a headless Chrome allocator. The browser process
// starts on the first Fetch.
func NewBrowserFetcher(userAgent string, timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	return &BrowserFetcher{
		timeout:         timeout,
		scrollSteps:     10,
		settle:          2 * time.Second,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
	}
}

func (b *BrowserFetcher) start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	if err := chromedp.Run(b.browserCtx); err != nil {
		return fmt.Errorf("failed to start headless browser: %w", err)
	}
	b.started = true
	log.Info().Msg("Headless browser started")
	return nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := b.start(); err != nil {
		return "", err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, b.timeout)
	defer timeoutCancel()
	stop := context.AfterFunc(ctx, timeoutCancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	// Scroll down in steps so lazily loaded product cards render.
	for i := 1; i < b.scrollSteps; i++ {
		script := fmt.Sprintf("window.scrollTo(0, document.body.scrollHeight * %d / %d);", i, b.scrollSteps)
		actions = append(actions, chromedp.Evaluate(script, nil), chromedp.Sleep(500*time.Millisecond))
	}
	var html string
	actions = append(actions, chromedp.Sleep(b.settle), chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}
	return html, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.browserCancel()
	b.allocatorCancel()
	return nil
}
