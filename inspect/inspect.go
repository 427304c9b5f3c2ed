// Package inspect reads back the page layout of a PDF file.
package inspect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const mmPerPoint = 25.4 / 72

// PageInfo holds the size of a single page.
type PageInfo struct {
	Width  float64 // points
	Height float64 // points
}

// WidthMM returns the page width in millimeters.
func (p PageInfo) WidthMM() float64 { return p.Width * mmPerPoint }

// HeightMM returns the page height in millimeters.
func (p PageInfo) HeightMM() float64 { return p.Height * mmPerPoint }

// Landscape reports whether the page is wider than it is tall.
func (p PageInfo) Landscape() bool { return p.Width > p.Height }

// Info describes a PDF document.
type Info struct {
	Pages []PageInfo
}

// Open reads the PDF at path.
func Open(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Load reads a PDF from raw bytes.
func Load(data []byte) (*Info, error) {
	return Read(bytes.NewReader(data))
}

// Read parses and validates a PDF and collects its page sizes.
func Read(rs io.ReadSeeker) (*Info, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("inspect: reading pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("inspect: counting pages: %w", err)
	}

	info := &Info{}
	for i := 1; i <= ctx.PageCount; i++ {
		_, _, inh, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, fmt.Errorf("inspect: page %d: %w", i, err)
		}
		var p PageInfo
		box := inh.MediaBox
		if inh.CropBox != nil {
			box = inh.CropBox
		}
		if box != nil {
			p.Width, p.Height = box.Width(), box.Height()
		}
		info.Pages = append(info.Pages, p)
	}
	return info, nil
}

// PageCount returns the number of pages in data.
func PageCount(data []byte) (int, error) {
	info, err := Load(data)
	if err != nil {
		return 0, err
	}
	return len(info.Pages), nil
}
