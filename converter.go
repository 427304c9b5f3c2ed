package pdfexport

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/chromedp"
)

// DefaultSelector is used when no selector is given: the whole body.
const DefaultSelector = "body"

// Converter exports elements of web pages to PDF with headless Chrome.
//
// A Converter manages a browser instance that is reused across exports.
// Every export runs in its own tab. It is safe for concurrent use.
//
// Call [Converter.Close] when the Converter is no longer needed to release
// browser resources.
type Converter struct {
	cfg           config
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewConverter creates a Converter with the given options.
//
// It starts a headless browser in the background. The caller must call
// [Converter.Close] when finished.
func NewConverter(opts ...Option) (*Converter, error) {
	cfg := newConfig(opts)

	if cfg.chromePath == "" && cfg.autoDownload {
		path, err := resolveBrowser()
		if err != nil {
			return nil, err
		}
		cfg.chromePath = path
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
	)
	if cfg.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.chromePath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(cfg.logger.Debugf),
		chromedp.WithErrorf(cfg.logger.Errorf),
	)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("pdfexport: starting browser: %w", err)
	}
	cfg.logger.Debugf("pdfexport: browser started")

	return &Converter{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Converter, including the
// browser process. Close is idempotent.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.browserCancel()
	c.allocCancel()
	return nil
}

// ExportHTML exports the element matched by selector in an HTML document.
// An empty selector exports the body. opts.Element is ignored; it is
// captured from the page.
func (c *Converter) ExportHTML(ctx context.Context, html, selector string, opts ExportOptions) (*Result, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "pdfexport-*.html")
	if err != nil {
		return nil, newError(KindIO, "creating temp file", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return nil, newError(KindIO, "writing temp file", err)
	}
	if err := f.Close(); err != nil {
		return nil, newError(KindIO, "closing temp file", err)
	}

	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, newError(KindIO, "resolving path", err)
	}
	return c.export(ctx, "file://"+abs, selector, opts)
}

// ExportURL exports the element matched by selector on the page at rawURL.
func (c *Converter) ExportURL(ctx context.Context, rawURL, selector string, opts ExportOptions) (*Result, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, newError(KindConfig, fmt.Sprintf("invalid URL %q", rawURL), err)
	}
	return c.export(ctx, rawURL, selector, opts)
}

// ExportFile exports the element matched by selector in a local HTML file.
func (c *Converter) ExportFile(ctx context.Context, path, selector string, opts ExportOptions) (*Result, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newError(KindIO, "resolving path", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, newError(KindIO, "reading input", err)
	}
	return c.export(ctx, "file://"+abs, selector, opts)
}

// export loads targetURL in a new tab, captures the element and hands it to
// an [Exporter] bound to that tab.
func (c *Converter) export(ctx context.Context, targetURL, selector string, opts ExportOptions) (*Result, error) {
	// Settings are checked before the page is touched.
	if _, err := opts.withDefaults(); err != nil {
		return nil, newError(KindConfig, "invalid options", err)
	}
	if selector == "" {
		selector = DefaultSelector
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()

	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if c.cfg.timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, c.cfg.timeout)
		defer cancelTimeout()
	}

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, newError(KindRaster, "loading page", err)
	}

	t := &tab{logger: c.cfg.logger}
	el, err := t.Capture(runCtx, selector)
	if err != nil {
		return nil, err
	}
	opts.Element = el

	return NewExporter(t, c.exporterOptions()...).ExportToBlob(runCtx, opts)
}

func (c *Converter) exporterOptions() []Option {
	return []Option{
		WithLogger(c.cfg.logger),
		WithDocumentFactory(c.cfg.newDocument),
		WithRasterScale(c.cfg.rasterScale),
		WithCrossOrigin(c.cfg.crossOrigin),
	}
}

func (c *Converter) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// --- Package-level convenience functions ---

// ExportHTML exports an element of an HTML string using a temporary
// [Converter]. For repeated use, create a [Converter] with [NewConverter]
// to reuse the browser instance.
func ExportHTML(ctx context.Context, html, selector string, opts ExportOptions, o ...Option) (*Result, error) {
	conv, err := NewConverter(o...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ExportHTML(ctx, html, selector, opts)
}

// ExportURL exports an element of a web page using a temporary [Converter].
func ExportURL(ctx context.Context, rawURL, selector string, opts ExportOptions, o ...Option) (*Result, error) {
	conv, err := NewConverter(o...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ExportURL(ctx, rawURL, selector, opts)
}

// ExportFile exports an element of a local HTML file using a temporary
// [Converter].
func ExportFile(ctx context.Context, path, selector string, opts ExportOptions, o ...Option) (*Result, error) {
	conv, err := NewConverter(o...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ExportFile(ctx, path, selector, opts)
}
