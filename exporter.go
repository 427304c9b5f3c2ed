package pdfexport

import (
	"bytes"
	"context"
	"errors"
)

// Exporter turns an [form.Element] into an image-based PDF.
//
// The surface and rasterizer are injected so that any host able to mount
// markup and capture it can be used; [Converter] provides a Chrome backed
// one. An Exporter holds no per-export state and is safe for concurrent use
// when its collaborators are.
type Exporter struct {
	surface    Surface
	rasterizer Rasterizer
	cfg        config
}

// NewExporter creates an Exporter that mounts and captures on b.
func NewExporter(b Backend, opts ...Option) *Exporter {
	return &Exporter{surface: b, rasterizer: b, cfg: newConfig(opts)}
}

// NewExporterWith creates an Exporter from a separate surface and rasterizer.
func NewExporterWith(s Surface, r Rasterizer, opts ...Option) *Exporter {
	return &Exporter{surface: s, rasterizer: r, cfg: newConfig(opts)}
}

// ExportToBlob renders the element and returns the PDF.
//
// Invalid options are reported as [KindConfig] errors before anything is
// mounted. Rasterization failures are reported after the offscreen
// container has been removed. Nothing is retried.
func (e *Exporter) ExportToBlob(ctx context.Context, opts ExportOptions) (*Result, error) {
	r, err := opts.resolved()
	if err != nil {
		return nil, newError(KindConfig, "invalid options", err)
	}
	g, err := r.geometry()
	if err != nil {
		return nil, newError(KindConfig, "invalid options", err)
	}
	log := e.cfg.logger
	log.Debugf("pdfexport: exporting %s (%s, %s, margin %.1fmm)", r.FileName, r.Format, r.Orientation, g.Margin)

	clone := r.Element.Clone()
	img, err := rasterize(ctx, e.surface, e.rasterizer, clone, RasterOptions{
		Scale:       e.cfg.rasterScale,
		CrossOrigin: e.cfg.crossOrigin,
	}, log)
	if err != nil {
		return nil, err
	}

	doc, err := e.cfg.newDocument(PageSetup{
		Orientation: r.Orientation,
		Format:      r.Format,
		Geometry:    g,
		Title:       r.FileName,
	})
	if err != nil {
		return nil, newError(KindRender, "creating document", err)
	}

	pages, err := paginate(img, g, doc)
	if err != nil {
		if errors.Is(err, ErrEmptyRaster) {
			return nil, newError(KindRaster, "slicing image", err)
		}
		return nil, newError(KindRender, "slicing image", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, newError(KindRender, "writing document", err)
	}

	b := img.Bounds()
	log.Infof("pdfexport: %s: %dx%d px on %d page(s), %d bytes", r.FileName, b.Dx(), b.Dy(), pages, buf.Len())
	return &Result{data: buf.Bytes(), pages: pages, fileName: r.FileName}, nil
}

// ExportToBase64 renders the element and returns the PDF as standard base64
// without a data URL prefix.
func (e *Exporter) ExportToBase64(ctx context.Context, opts ExportOptions) (string, error) {
	res, err := e.ExportToBlob(ctx, opts)
	if err != nil {
		return "", err
	}
	return res.Base64(), nil
}

// ExportToFile renders the element and writes the PDF to opts.FileName.
func (e *Exporter) ExportToFile(ctx context.Context, opts ExportOptions) error {
	res, err := e.ExportToBlob(ctx, opts)
	if err != nil {
		return err
	}
	if err := res.WriteToFile(res.FileName(), 0o644); err != nil {
		return newError(KindIO, "writing file", err)
	}
	e.cfg.logger.Infof("pdfexport: wrote %s", res.FileName())
	return nil
}

// --- Package-level convenience functions ---

// ExportToBlob exports opts.Element using b with a temporary [Exporter].
func ExportToBlob(ctx context.Context, b Backend, opts ExportOptions, o ...Option) (*Result, error) {
	return NewExporter(b, o...).ExportToBlob(ctx, opts)
}

// ExportToBase64 exports opts.Element using b and returns raw base64.
func ExportToBase64(ctx context.Context, b Backend, opts ExportOptions, o ...Option) (string, error) {
	return NewExporter(b, o...).ExportToBase64(ctx, opts)
}

// ExportToFile exports opts.Element using b and writes opts.FileName.
func ExportToFile(ctx context.Context, b Backend, opts ExportOptions, o ...Option) error {
	return NewExporter(b, o...).ExportToFile(ctx, opts)
}
