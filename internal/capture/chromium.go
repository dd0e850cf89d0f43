// Package capture renders the /calendar page to a PNG with headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"coursecal/internal/calendar"
	appLog "coursecal/internal/log"
)

// Defaults for a landscape month snapshot.
const (
	DefaultWidth   = 1400
	DefaultHeight  = 1000
	DefaultTimeout = 30 * time.Second
)

var (
	ErrMissingBaseURL = errors.New("capture: base URL is required")
	ErrMissingOutput  = errors.New("capture: output path is required")
)

// Options controls one month snapshot.
type Options struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// Month is any date inside the month to capture.
	Month calendar.Date

	// Courses narrows the page to these courses. Empty means all.
	Courses []string

	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration
}

func (o *Options) withDefaults() error {
	if o.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if o.OutputPath == "" {
		return ErrMissingOutput
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// PageURL is the /calendar URL captured for opts.
func PageURL(opts Options) (string, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("capture: parse base URL: %w", err)
	}
	base.Path = "/calendar"
	q := url.Values{}
	if !opts.Month.IsZero() {
		q.Set("date", opts.Month.String())
	}
	for _, c := range opts.Courses {
		q.Add("course", c)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// CaptureMonthPNG loads the month page, waits for its data-ready="true"
// root and writes a full-page screenshot to opts.OutputPath. The file is
// replaced atomically.
func CaptureMonthPNG(parent context.Context, opts Options) error {
	if err := opts.withDefaults(); err != nil {
		return err
	}
	pageURL, err := PageURL(opts)
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}
	started := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return err
	}
	appLog.Info("month snapshot written", "url", pageURL, "path", opts.OutputPath, "bytes", len(png), "took", time.Since(started))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".coursecal-snapshot-*.png")
	if err != nil {
		return fmt.Errorf("capture: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("capture: close PNG: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("capture: rename PNG: %w", err)
	}
	return nil
}
