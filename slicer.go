package pdfexport

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"iter"
	"math"

	"golang.org/x/image/draw"
)

// band is one horizontal strip of the source bitmap: rows [top, bottom)
// shown heightMM tall on its page.
type band struct {
	top, bottom int
	heightMM    float64
}

// pxPerMM is the single scale used for the whole document: the bitmap
// width fitted to the printable width.
func (g PageGeometry) pxPerMM(widthPx int) float64 {
	return float64(widthPx) / g.PrintableWidth
}

// pageCount returns ceil(H / rowsPerPage) for a widthPx x heightPx bitmap.
func (g PageGeometry) pageCount(widthPx, heightPx int) int {
	if widthPx <= 0 || heightPx <= 0 {
		return 0
	}
	rowsPerPage := g.pxPerMM(widthPx) * g.PrintableHeight
	return int(math.Ceil(float64(heightPx) / rowsPerPage))
}

// bands yields the strips of a widthPx x heightPx bitmap top to bottom.
// Boundaries are floored from the exact scale so rounding never accumulates,
// no strip is taller than PrintableHeight and the last strip ends on the
// last row. Strip heights in mm use the same scale as the width.
func (g PageGeometry) bands(widthPx, heightPx int) iter.Seq[band] {
	return func(yield func(band) bool) {
		n := g.pageCount(widthPx, heightPx)
		ppm := g.pxPerMM(widthPx)
		rowsPerPage := g.PrintableHeight * ppm

		top := 0
		for i := range n {
			if top >= heightPx {
				return
			}
			bottom := heightPx
			if i < n-1 {
				bottom = min(max(int(math.Floor(float64(i+1)*rowsPerPage)), top+1), heightPx)
			}
			b := band{
				top:      top,
				bottom:   bottom,
				heightMM: math.Min(float64(bottom-top)/ppm, g.PrintableHeight),
			}
			if !yield(b) {
				return
			}
			top = bottom
		}
	}
}

// paginate cuts img into page-sized bands and places each band at the
// page margin of its own page in doc. The document is expected to hold one
// empty page already; a page is appended before every band but the first.
// It returns the number of pages used.
func paginate(img image.Image, g PageGeometry, doc DocumentBuilder) (int, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return 0, ErrEmptyRaster
	}

	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	var buf bytes.Buffer
	pages := 0
	for b := range g.bands(w, h) {
		if pages > 0 {
			if err := doc.AddPage(); err != nil {
				return pages, fmt.Errorf("adding page %d: %w", pages+1, err)
			}
		}

		// Native resolution: rows are copied, never resampled.
		slice := image.NewRGBA(image.Rect(0, 0, w, b.bottom-b.top))
		src := image.Rect(bounds.Min.X, bounds.Min.Y+b.top, bounds.Max.X, bounds.Min.Y+b.bottom)
		draw.Copy(slice, image.Point{}, img, src, draw.Src, nil)

		buf.Reset()
		if err := enc.Encode(&buf, slice); err != nil {
			return pages, fmt.Errorf("encoding slice %d: %w", pages+1, err)
		}
		if err := doc.AddImage(buf.Bytes(), g.Margin, g.Margin, g.PrintableWidth, b.heightMM, CompressionFast); err != nil {
			return pages, fmt.Errorf("placing slice %d: %w", pages+1, err)
		}
		pages++
	}
	return pages, nil
}
