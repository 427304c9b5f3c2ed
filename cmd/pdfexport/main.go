// pdfexport renders an element of a web page into a paginated A4 PDF.
//
// Usage:
//
//	pdfexport export [options] <file.html|url>
//	pdfexport info [options] <file.pdf>
//	pdfexport serve [options]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	pdfexport "github.com/porticus-lab/go-pdfexport"
	"github.com/porticus-lab/go-pdfexport/download"
	"github.com/porticus-lab/go-pdfexport/inspect"
	"github.com/porticus-lab/go-pdfexport/internal/server"
)

// chromePathEnv overrides browser discovery.
const chromePathEnv = "PDFEXPORT_CHROME_PATH"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "export":
		err = runExport(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pdfexport - render a web page element into an A4 PDF

Usage:
  pdfexport export [options] <file.html|url>
  pdfexport info [options] <file.pdf>
  pdfexport serve [options]

Commands:
  export    Rasterize an element and write it as a paginated PDF
  info      Display page count and page dimensions of a PDF
  serve     Run the HTTP export service

Export options:
  -s <selector>   CSS selector of the element (default: body)
  -o <file>       Output file (default: document.pdf)
  -l              Landscape orientation
  -m <mm>         Page margin in millimeters (default: 10)
  -t <duration>   Export timeout (default: 30s)
  -base64         Print raw base64 to stdout instead of writing a file
  -v              Verbose logging

Info options:
  -p <range>      Page range, e.g. "1", "1-5", "1,3,5" (default: all)
  -f <format>     Output format: text, json (default: text)

Serve options:
  -a <addr>       Listen address (default: :8080)
  -v              Verbose logging

Set ` + chromePathEnv + ` to use a specific Chrome binary.

Examples:
  pdfexport export -s '#invoice' -o invoice.pdf invoice.html
  pdfexport export -l -m 0 https://example.com
  pdfexport info -f json invoice.pdf
  pdfexport serve -a 127.0.0.1:9000
`)
}

// exportArgs holds the parsed "export" command line.
type exportArgs struct {
	selector string
	output   string
	opts     pdfexport.ExportOptions
	timeout  time.Duration
	base64   bool
	verbose  bool
	input    string
}

func parseExportArgs(args []string) (exportArgs, error) {
	a := exportArgs{timeout: 30 * time.Second}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-s", "-o", "-m", "-t":
			flag := args[i]
			i++
			if i >= len(args) {
				return a, fmt.Errorf("%s requires an argument", flag)
			}
			switch flag {
			case "-s":
				a.selector = args[i]
			case "-o":
				a.output = args[i]
			case "-m":
				mm, err := strconv.ParseFloat(args[i], 64)
				if err != nil {
					return a, fmt.Errorf("invalid margin %q: %w", args[i], err)
				}
				a.opts.Margin = pdfexport.MarginMM(mm)
			case "-t":
				d, err := time.ParseDuration(args[i])
				if err != nil {
					return a, fmt.Errorf("invalid timeout %q: %w", args[i], err)
				}
				a.timeout = d
			}
		case "-l":
			a.opts.Orientation = pdfexport.Landscape
		case "-base64":
			a.base64 = true
		case "-v":
			a.verbose = true
		default:
			if strings.HasPrefix(args[i], "-") {
				return a, fmt.Errorf("unknown option: %s", args[i])
			}
			a.input = args[i]
		}
	}

	if a.input == "" {
		return a, fmt.Errorf("no input file or URL specified")
	}
	a.opts.FileName = a.output
	return a, nil
}

// runExport implements the "export" command.
func runExport(args []string) error {
	a, err := parseExportArgs(args)
	if err != nil {
		return err
	}

	log, err := newLogger(a.verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	conv, err := pdfexport.NewConverter(converterOptions(log, pdfexport.WithTimeout(a.timeout))...)
	if err != nil {
		return err
	}
	defer conv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *pdfexport.Result
	if isURL(a.input) {
		res, err = conv.ExportURL(ctx, a.input, a.selector, a.opts)
	} else {
		res, err = conv.ExportFile(ctx, a.input, a.selector, a.opts)
	}
	if err != nil {
		return err
	}

	if a.base64 {
		fmt.Println(res.Base64())
		return nil
	}
	if err := res.WriteToFile(res.FileName(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", res.FileName(), err)
	}
	fmt.Fprintf(os.Stderr, "%s: %d page(s), %d bytes\n", res.FileName(), res.Pages(), res.Len())
	return nil
}

// runInfo implements the "info" command.
func runInfo(args []string) error {
	var (
		pageRange string
		format    string
		inputFile string
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-p":
			i++
			if i >= len(args) {
				return fmt.Errorf("-p requires an argument")
			}
			pageRange = args[i]
		case "-f":
			i++
			if i >= len(args) {
				return fmt.Errorf("-f requires an argument")
			}
			format = args[i]
		default:
			if strings.HasPrefix(args[i], "-") {
				return fmt.Errorf("unknown option: %s", args[i])
			}
			inputFile = args[i]
		}
	}
	if inputFile == "" {
		return fmt.Errorf("no input file specified")
	}

	info, err := inspect.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inputFile, err)
	}

	pageIndices, err := parsePageRange(pageRange, len(info.Pages))
	if err != nil {
		return fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	type pageResult struct {
		Page        int     `json:"page"`
		WidthMM     float64 `json:"widthMm"`
		HeightMM    float64 `json:"heightMm"`
		Orientation string  `json:"orientation"`
	}
	results := make([]pageResult, 0, len(pageIndices))
	for _, idx := range pageIndices {
		p := info.Pages[idx]
		o := "portrait"
		if p.Landscape() {
			o = "landscape"
		}
		results = append(results, pageResult{Page: idx + 1, WidthMM: p.WidthMM(), HeightMM: p.HeightMM(), Orientation: o})
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			File  string       `json:"file"`
			Pages int          `json:"pages"`
			Sizes []pageResult `json:"sizes"`
		}{inputFile, len(info.Pages), results})
	}

	fmt.Printf("File:    %s\n", inputFile)
	fmt.Printf("Pages:   %d\n", len(info.Pages))
	if len(results) > 0 {
		fmt.Println()
		fmt.Println("Page dimensions:")
		for _, r := range results {
			fmt.Printf("  Page %d: %.1f x %.1f mm (%s)\n", r.Page, r.WidthMM, r.HeightMM, r.Orientation)
		}
	}
	return nil
}

// runServe implements the "serve" command.
func runServe(args []string) error {
	addr := ":8080"
	verbose := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-a":
			i++
			if i >= len(args) {
				return fmt.Errorf("-a requires an argument")
			}
			addr = args[i]
		case "-v":
			verbose = true
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}

	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	conv, err := pdfexport.NewConverter(converterOptions(log)...)
	if err != nil {
		return err
	}
	defer conv.Close()

	srv := server.New(conv, download.NewRegistry(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func converterOptions(log *zap.SugaredLogger, extra ...pdfexport.Option) []pdfexport.Option {
	opts := []pdfexport.Option{pdfexport.WithLogger(log)}
	if path := os.Getenv(chromePathEnv); path != "" {
		opts = append(opts, pdfexport.WithChromePath(path))
	} else {
		opts = append(opts, pdfexport.WithAutoDownload())
	}
	if os.Geteuid() == 0 {
		opts = append(opts, pdfexport.WithNoSandbox())
	}
	return append(opts, extra...)
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l.Sugar(), nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "file://")
}

// parsePageRange converts a page range string to a slice of 0-based page indices.
// Supported formats: "" (all), "3" (single page), "1-5" (range), "1,3,5" (list).
func parsePageRange(rng string, total int) ([]int, error) {
	if rng == "" {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	seen := make(map[int]bool)
	add := func(p int) {
		if !seen[p] {
			indices = append(indices, p-1)
			seen[p] = true
		}
	}

	for _, part := range strings.Split(rng, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", hi)
			}
			if start < 1 || end > total || start > end {
				return nil, fmt.Errorf("page range %d-%d out of bounds (1-%d)", start, end, total)
			}
			for p := start; p <= end; p++ {
				add(p)
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		if p < 1 || p > total {
			return nil, fmt.Errorf("page %d out of bounds (1-%d)", p, total)
		}
		add(p)
	}
	return indices, nil
}
