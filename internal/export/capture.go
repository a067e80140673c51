package export

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/decklab/decklab/internal/deck"
	"github.com/decklab/decklab/internal/logging"
)

// Capturer drives a headless browser at a running preview URL and
// screenshots each card frame, producing the same artifacts as the
// client-side capture round trip.
type Capturer struct {
	collector *Collector
	timeout   time.Duration
	logger    logging.Logger
}

// NewCapturer creates a capturer writing through the collector.
func NewCapturer(collector *Collector, timeout time.Duration, logger logging.Logger) *Capturer {
	return &Capturer{
		collector: collector,
		timeout:   timeout,
		logger:    logger.WithComponent("capture"),
	}
}

// CaptureDeck loads previewURL and captures every card in the deck by
// its render-scope element id. A failed card is logged and skipped; the
// pass continues, and the number of captured cards is returned.
func (c *Capturer) CaptureDeck(ctx context.Context, previewURL string, d *deck.Deck) (int, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	navCtx, cancelNav := context.WithTimeout(browserCtx, c.timeout)
	defer cancelNav()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(previewURL),
		chromedp.WaitVisible(".card-frame", chromedp.ByQuery),
	); err != nil {
		return 0, fmt.Errorf("loading preview %s: %w", previewURL, err)
	}

	captured := 0
	for i, card := range d.Cards {
		selector := "#" + deck.ScopeID(i)

		var shot []byte
		shotCtx, cancelShot := context.WithTimeout(browserCtx, c.timeout)
		err := chromedp.Run(shotCtx, chromedp.Screenshot(selector, &shot, chromedp.ByID))
		cancelShot()
		if err != nil {
			c.logger.Warn(ctx, err, "skipping card capture", "card", card.Name(), "selector", selector)
			continue
		}

		if err := c.collector.SaveImage(ctx, card.Name(), shot); err != nil {
			c.logger.Warn(ctx, err, "skipping card write", "card", card.Name())
			continue
		}
		captured++
	}

	c.logger.Info(ctx, "deck captured", "captured", captured, "cards", d.Len())
	return captured, nil
}
