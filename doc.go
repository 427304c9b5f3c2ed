// Package pdfexport turns an element of a web page into a paginated,
// image-based PDF.
//
// An export clones the element, carrying over the live state of its form
// controls, mounts the clone in an offscreen container, rasterizes it at
// twice its layout size and slices the bitmap across A4 pages. Every page
// holds one horizontal band drawn at the page margin; the last band may be
// shorter.
//
// # Exporting from a browser
//
// For one-off exports use the package-level helpers:
//
//	res, err := pdfexport.ExportHTML(ctx, "<h1>Hello</h1>", "", pdfexport.ExportOptions{})
//
// For repeated exports create a [Converter], which reuses the browser process:
//
//	c, err := pdfexport.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	res, err := c.ExportHTML(ctx, html, "#invoice", opts)
//	res, err  = c.ExportURL(ctx, "https://example.com", "main", opts)
//	res, err  = c.ExportFile(ctx, "report.html", "body", opts)
//
// Use [ExportOptions] to control the file name, orientation and margin:
//
//	opts := pdfexport.ExportOptions{
//	    FileName:    "report.pdf",
//	    Orientation: pdfexport.Landscape,
//	    Margin:      pdfexport.MarginMM(15),
//	}
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload]:
//
//	c, err := pdfexport.NewConverter(pdfexport.WithAutoDownload())
//
// # Other hosts
//
// An [Exporter] works on any [Backend], a [Surface] that can mount a
// container plus a [Rasterizer] that can capture it. The element is a
// [form.Element] parsed from markup with live control state attached.
//
//	e := pdfexport.NewExporter(backend)
//	res, err := e.ExportToBlob(ctx, pdfexport.ExportOptions{Element: el})
//
// # Results
//
// A [Result] gives flexible access to the generated PDF:
//
//	res.Bytes()                       // []byte
//	res.Base64()                      // raw base64, no data URL prefix
//	res.DataURL()                     // data:application/pdf;base64,...
//	res.Pages()                       // number of pages
//	res.WriteToFile("out.pdf", 0o644) // atomic write to disk
//
// Errors carry an [ErrorKind]; use [KindOf] to tell configuration mistakes
// from rasterization or rendering failures.
package pdfexport
