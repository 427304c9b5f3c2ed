package pdfexport

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Compression is an embedding-speed hint for images placed in a document.
type Compression string

const (
	CompressionNone   Compression = "NONE"
	CompressionFast   Compression = "FAST"
	CompressionMedium Compression = "MEDIUM"
	CompressionSlow   Compression = "SLOW"
)

// PageSetup describes the pages a [DocumentBuilder] creates. All lengths
// are millimeters.
type PageSetup struct {
	Orientation Orientation
	Format      Format
	Geometry    PageGeometry
	Title       string
}

// DocumentBuilder assembles an image-based PDF one page at a time.
//
// A new builder already holds one empty page. The image data passed to
// AddImage is PNG encoded and only valid for the duration of the call.
type DocumentBuilder interface {
	AddPage() error
	AddImage(png []byte, x, y, w, h float64, c Compression) error
	Output(w io.Writer) error
}

// DocumentFactory creates a [DocumentBuilder] for one export.
type DocumentFactory func(PageSetup) (DocumentBuilder, error)

// fpdfDocument is the default [DocumentBuilder], backed by gofpdf.
type fpdfDocument struct {
	pdf    *gofpdf.Fpdf
	images int
}

// NewFPDF returns a gofpdf-backed [DocumentBuilder] in millimeter units
// with automatic page breaks disabled.
func NewFPDF(setup PageSetup) (DocumentBuilder, error) {
	orientation := "P"
	if setup.Orientation == Landscape {
		orientation = "L"
	}
	if _, ok := setup.Format.Size(); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, setup.Format)
	}

	pdf := gofpdf.New(orientation, "mm", strings.ToUpper(string(setup.Format)), "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("go-pdfexport", true)
	if setup.Title != "" {
		pdf.SetTitle(setup.Title, true)
	}
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return &fpdfDocument{pdf: pdf}, nil
}

func (d *fpdfDocument) AddPage() error {
	d.pdf.AddPage()
	return d.pdf.Error()
}

// AddImage places a PNG. gofpdf embeds PNG data without re-encoding it, so
// every compression hint is served the same way.
func (d *fpdfDocument) AddImage(data []byte, x, y, w, h float64, _ Compression) error {
	d.images++
	name := fmt.Sprintf("slice-%d", d.images)
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))
	d.pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
	return d.pdf.Error()
}

func (d *fpdfDocument) Output(w io.Writer) error {
	return d.pdf.Output(w)
}
