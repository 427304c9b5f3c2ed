package pdfexport

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContainerAttr marks the offscreen container; its value is the container ID.
const ContainerAttr = "data-pdfexport-container"

// ContainerStyle is the inline style of the offscreen container: taken out
// of the flow, stacked above the page and painted on an opaque background so
// transparency never reaches the bitmap. A [Surface] sets the vertical
// offset, which depends on the host document, so that the container sits
// outside the visible viewport.
const ContainerStyle = "position:absolute;left:0;z-index:2147483647;background:white"

// detachTimeout bounds container removal once the export context is done.
const detachTimeout = 5 * time.Second

// Container is the offscreen host of a cloned element during rasterization.
type Container struct {
	ID string

	// Node is a <div> whose only child is the clone.
	Node *html.Node
}

// Selector returns a CSS selector matching the container.
func (c *Container) Selector() string {
	return `[` + ContainerAttr + `="` + c.ID + `"]`
}

// Surface is the host document a container is mounted into.
type Surface interface {
	// Attach appends the container to the document body and moves it
	// vertically out of the visible viewport.
	Attach(ctx context.Context, c *Container) error
	// Detach removes the container. Detaching a container that is not
	// attached is a no-op.
	Detach(ctx context.Context, c *Container) error
}

// RasterOptions is passed to the [Rasterizer] for each capture.
type RasterOptions struct {
	// Scale is the upscale factor of the output bitmap.
	Scale float64
	// CrossOrigin allows cross-origin assets to be drawn.
	CrossOrigin bool
}

// Rasterizer renders the element inside an attached container to a bitmap.
type Rasterizer interface {
	Rasterize(ctx context.Context, c *Container, opts RasterOptions) (image.Image, error)
}

// Backend is a [Surface] that can also rasterize what is mounted on it,
// such as a browser tab.
type Backend interface {
	Surface
	Rasterizer
}

func newContainer(clone *html.Node) *Container {
	id := uuid.NewString()
	div := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: ContainerAttr, Val: id},
			{Key: "style", Val: ContainerStyle},
		},
	}
	div.AppendChild(clone)
	return &Container{ID: id, Node: div}
}

// rasterize mounts clone offscreen on s, captures it with r and removes the
// container again on every path. A removal failure is only reported when the
// capture itself succeeded.
func rasterize(ctx context.Context, s Surface, r Rasterizer, clone *html.Node, opts RasterOptions, log Logger) (img image.Image, err error) {
	c := newContainer(clone)

	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachTimeout)
		defer cancel()
		if derr := s.Detach(dctx, c); derr != nil {
			log.Errorf("pdfexport: removing container %s: %v", c.ID, derr)
			if err == nil {
				img, err = nil, newError(KindRaster, "removing container", derr)
			}
		}
	}()

	if err := s.Attach(ctx, c); err != nil {
		return nil, newError(KindRaster, "mounting container", err)
	}
	log.Debugf("pdfexport: container %s attached", c.ID)

	img, err = r.Rasterize(ctx, c, opts)
	if err != nil {
		return nil, newError(KindRaster, "rasterizing element", err)
	}
	return img, nil
}
