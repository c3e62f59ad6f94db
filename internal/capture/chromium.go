package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "weekendbot/internal/log"
)

// Default capture parameters, roughly a phone-width chat bubble.
const (
	DefaultWidth      = 480
	DefaultHeight     = 1200
	DefaultTimeoutSec = 30
)

// ReadySelector marks a preview page as fully rendered.
const ReadySelector = `[data-ready="true"]`

// CaptureOptions defines parameters for a Chromium-based screenshot capture.
type CaptureOptions struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/preview".
	// Ignored when HTML is set.
	URL string

	// HTML is a complete preview page to capture without a running server.
	HTML string

	// OutputPath is where the PNG screenshot will be written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero, a sane default
	// (DefaultTimeoutSec) is used.
	Timeout time.Duration
}

func (o *CaptureOptions) normalize() error {
	if o.URL == "" && o.HTML == "" {
		return fmt.Errorf("capture: URL or HTML is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// CapturePreviewPNG launches a headless Chromium instance via chromedp,
// opens the preview page, waits until ReadySelector is visible and writes
// a full-page PNG screenshot to opts.OutputPath.
//
// When opts.HTML is set the page is written to a temporary file next to
// the output and opened from disk.
func CapturePreviewPNG(parentCtx context.Context, opts CaptureOptions) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	target := opts.URL
	if opts.HTML != "" {
		tmp, err := os.CreateTemp(filepath.Dir(opts.OutputPath), ".weekendbot-preview-*.html")
		if err != nil {
			return fmt.Errorf("capture: failed to stage HTML: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.WriteString(opts.HTML); err != nil {
			tmp.Close()
			return fmt.Errorf("capture: failed to stage HTML: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("capture: failed to stage HTML: %w", err)
		}
		abs, err := filepath.Abs(tmp.Name())
		if err != nil {
			return fmt.Errorf("capture: failed to stage HTML: %w", err)
		}
		target = "file://" + filepath.ToSlash(abs)
	}

	// Create a new chromedp context.
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	// Apply timeout to the entire capture sequence.
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Small extra delay to allow emoji fonts to paint.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		appLog.Error("preview capture failed", err, "target", target)
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("preview captured", "path", opts.OutputPath, "bytes", len(png), "width", opts.Width, "height", opts.Height)
	return nil
}
