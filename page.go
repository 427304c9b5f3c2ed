package pdfexport

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/porticus-lab/go-pdfexport/form"
)

// PageSize represents paper dimensions in millimeters.
type PageSize struct {
	Width  float64 // Width in millimeters.
	Height float64 // Height in millimeters.
}

// Format names a paper size.
type Format string

// A4 is the default and, for now, only supported format.
const A4 Format = "a4"

var pageSizes = map[Format]PageSize{
	A4: {Width: 210, Height: 297},
}

// Size returns the portrait dimensions of the format.
func (f Format) Size() (PageSize, bool) {
	s, ok := pageSizes[f]
	return s, ok
}

// Orientation represents the page orientation.
type Orientation string

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = "p"
	// Landscape rotates the page to horizontal orientation.
	Landscape Orientation = "l"
)

// Defaults applied by [ExportOptions].
const (
	DefaultFileName = "document.pdf"
	DefaultMarginMM = 10.0
)

// ExportOptions configures a single export.
//
// Element is required. Every other field falls back to a default: file name
// "document.pdf", portrait A4 and a 10 mm margin on every side.
type ExportOptions struct {
	// Element is the subtree to export. It is only read during the call.
	Element *form.Element

	// FileName is the name of the file written by [Exporter.ExportToFile]
	// and suggested to downloads.
	FileName string

	Orientation Orientation
	Format      Format

	// Margin in millimeters. Nil means [DefaultMarginMM]; use [MarginMM]
	// to request an explicit value, including zero.
	Margin *float64
}

// MarginMM returns a margin value for [ExportOptions.Margin].
func MarginMM(mm float64) *float64 {
	return &mm
}

// resolved returns a copy with defaults applied, or a configuration error.
func (o *ExportOptions) resolved() (ExportOptions, error) {
	if o == nil || o.Element == nil || o.Element.Root == nil {
		return ExportOptions{}, ErrNoElement
	}
	return o.withDefaults()
}

// withDefaults applies defaults and validates everything but the element.
func (o *ExportOptions) withDefaults() (ExportOptions, error) {
	r := *o
	r.FileName = normalizeFileName(r.FileName)
	if r.Orientation == "" {
		r.Orientation = Portrait
	}
	if r.Orientation != Portrait && r.Orientation != Landscape {
		return ExportOptions{}, fmt.Errorf("%w: %q", ErrInvalidOrientation, r.Orientation)
	}
	if r.Format == "" {
		r.Format = A4
	}
	r.Format = Format(strings.ToLower(string(r.Format)))
	if _, ok := r.Format.Size(); !ok {
		return ExportOptions{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, r.Format)
	}
	margin := DefaultMarginMM
	if r.Margin != nil {
		margin = *r.Margin
	}
	r.Margin = &margin
	if _, err := r.geometry(); err != nil {
		return ExportOptions{}, err
	}
	return r, nil
}

// normalizeFileName trims name, composes it to NFC and makes sure it ends
// in ".pdf".
func normalizeFileName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return DefaultFileName
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// marginMM returns the margin, assuming resolved options.
func (o *ExportOptions) marginMM() float64 {
	if o.Margin == nil {
		return DefaultMarginMM
	}
	return *o.Margin
}

// PageGeometry is the derived layout of one page in millimeters.
type PageGeometry struct {
	Width           float64
	Height          float64
	Margin          float64
	PrintableWidth  float64
	PrintableHeight float64
}

// NewPageGeometry computes the page layout for a format, orientation and
// margin. Landscape swaps width and height. The margin must leave a positive
// printable area in both directions.
func NewPageGeometry(f Format, o Orientation, marginMM float64) (PageGeometry, error) {
	size, ok := f.Size()
	if !ok {
		return PageGeometry{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	w, h := size.Width, size.Height
	if o == Landscape {
		w, h = h, w
	}
	if math.IsNaN(marginMM) || math.IsInf(marginMM, 0) || marginMM < 0 {
		return PageGeometry{}, fmt.Errorf("%w: %v mm", ErrInvalidMargin, marginMM)
	}
	g := PageGeometry{
		Width:           w,
		Height:          h,
		Margin:          marginMM,
		PrintableWidth:  w - 2*marginMM,
		PrintableHeight: h - 2*marginMM,
	}
	if g.PrintableWidth <= 0 || g.PrintableHeight <= 0 {
		return PageGeometry{}, fmt.Errorf("%w: %v mm on a %vx%v mm page", ErrInvalidMargin, marginMM, w, h)
	}
	return g, nil
}

func (o *ExportOptions) geometry() (PageGeometry, error) {
	return NewPageGeometry(o.Format, o.Orientation, o.marginMM())
}

// PageCount returns the number of pages a bitmap of the given pixel size
// occupies: ceil(H / (pxPerMm * printableHeight)) with pxPerMm fitted to
// the printable width.
func (g PageGeometry) PageCount(widthPx, heightPx int) int {
	return g.pageCount(widthPx, heightPx)
}
