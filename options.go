package pdfexport

import (
	"time"

	"go.uber.org/zap"
)

// Logger provides logging hooks. A [*zap.SugaredLogger] satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// config holds internal configuration for an [Exporter] or [Converter].
type config struct {
	chromePath   string
	timeout      time.Duration
	noSandbox    bool
	headless     string
	autoDownload bool

	logger      Logger
	newDocument DocumentFactory
	rasterScale float64
	crossOrigin bool
}

const defaultRasterScale = 2.0

func defaultConfig() config {
	return config{
		timeout:     30 * time.Second,
		headless:    "new",
		logger:      zap.NewNop().Sugar(),
		newDocument: NewFPDF,
		rasterScale: defaultRasterScale,
		crossOrigin: true,
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Option configures an [Exporter] or a [Converter].
type Option func(*config)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum duration for a single export.
// Defaults to 30 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithHeadless sets the value of Chrome's --headless flag ("new", "old").
func WithHeadless(mode string) Option {
	return func(c *config) {
		c.headless = mode
	}
}

// WithAutoDownload downloads a compatible Chromium build when no path is
// configured with [WithChromePath].
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithLogger sets the logger. Nil restores the no-op logger.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l == nil {
			l = zap.NewNop().Sugar()
		}
		c.logger = l
	}
}

// WithDocumentFactory replaces the PDF builder. Defaults to [NewFPDF].
func WithDocumentFactory(f DocumentFactory) Option {
	return func(c *config) {
		if f != nil {
			c.newDocument = f
		}
	}
}

// WithRasterScale sets the upscale factor requested from the rasterizer.
// Defaults to 2. Values <= 0 are ignored.
func WithRasterScale(scale float64) Option {
	return func(c *config) {
		if scale > 0 {
			c.rasterScale = scale
		}
	}
}

// WithCrossOrigin controls whether cross-origin assets (images) are loaded
// into the snapshot. Enabled by default.
func WithCrossOrigin(enabled bool) Option {
	return func(c *config) {
		c.crossOrigin = enabled
	}
}
