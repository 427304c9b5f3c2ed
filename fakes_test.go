package pdfexport

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/porticus-lab/go-pdfexport/form"
)

// fakeSurface records containers mounted on it.
type fakeSurface struct {
	attachErr error
	detachErr error

	mu          sync.Mutex
	attached    map[string]*Container
	attachCalls int
	detachCalls int
	detachCtxOK bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{attached: make(map[string]*Container)}
}

func (s *fakeSurface) Attach(_ context.Context, c *Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachCalls++
	if s.attachErr != nil {
		return s.attachErr
	}
	s.attached[c.ID] = c
	return nil
}

func (s *fakeSurface) Detach(ctx context.Context, c *Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachCalls++
	s.detachCtxOK = ctx.Err() == nil
	delete(s.attached, c.ID)
	return s.detachErr
}

func (s *fakeSurface) mounted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attached)
}

// fakeRasterizer returns a striped bitmap of a fixed size.
type fakeRasterizer struct {
	surface *fakeSurface
	width   int
	height  int
	err     error
	block   bool

	mu       sync.Mutex
	markup   string
	opts     RasterOptions
	wasMount bool
}

func (r *fakeRasterizer) Rasterize(ctx context.Context, c *Container, opts RasterOptions) (image.Image, error) {
	markup, err := form.Render(c.Node)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.markup = markup
	r.opts = opts
	if r.surface != nil {
		r.surface.mu.Lock()
		_, r.wasMount = r.surface.attached[c.ID]
		r.surface.mu.Unlock()
	}
	r.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return stripes(r.width, r.height), nil
}

// fakeBackend joins a fakeSurface and a fakeRasterizer.
type fakeBackend struct {
	*fakeSurface
	*fakeRasterizer
}

func newFakeBackend(w, h int) *fakeBackend {
	s := newFakeSurface()
	return &fakeBackend{fakeSurface: s, fakeRasterizer: &fakeRasterizer{surface: s, width: w, height: h}}
}

// stripes returns a w x h image whose row y has gray level y%256.
func stripes(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		c := color.RGBA{R: uint8(y), G: uint8(y), B: uint8(y), A: 255}
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type placedImage struct {
	page       int
	x, y, w, h float64
	img        image.Image
}

// recordingDoc is a DocumentBuilder that keeps what was placed.
type recordingDoc struct {
	setup  PageSetup
	pages  int
	images []placedImage
}

func (d *recordingDoc) AddPage() error {
	d.pages++
	return nil
}

func (d *recordingDoc) AddImage(data []byte, x, y, w, h float64, _ Compression) error {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	d.images = append(d.images, placedImage{page: d.pages, x: x, y: y, w: w, h: h, img: img})
	return nil
}

func (d *recordingDoc) Output(w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-1.4\n%%EOF\n")
	return err
}

func recordingFactory(out **recordingDoc) DocumentFactory {
	return func(s PageSetup) (DocumentBuilder, error) {
		d := &recordingDoc{setup: s, pages: 1}
		*out = d
		return d, nil
	}
}

func mustParse(markup string) *form.Element {
	el, err := form.Parse(markup)
	if err != nil {
		panic(err)
	}
	return el
}
