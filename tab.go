package pdfexport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/porticus-lab/go-pdfexport/form"
)

// tab is the Chrome [Backend]: a loaded page whose element is captured,
// mounted offscreen and screenshotted. Every method runs against the tab
// carried by ctx.
type tab struct {
	logger Logger
}

// captureScript stamps each control under the root with a key, reads the
// markup and the live control state, and removes the keys again.
const captureScript = `(() => {
  const root = document.querySelector(%s);
  if (!root) return {found: false};
  const sel = 'input, textarea, select';
  const controls = Array.from(root.querySelectorAll(sel));
  if (root.matches(sel)) controls.unshift(root);
  const states = controls.map((c, i) => {
    const key = %s + '-' + i;
    c.setAttribute(%s, key);
    return {
      key: key,
      tag: c.tagName.toLowerCase(),
      type: (c.type || '').toLowerCase(),
      value: c.value == null ? '' : String(c.value),
      checked: !!c.checked,
      selectedIndex: c.tagName === 'SELECT' ? c.selectedIndex : -1,
    };
  });
  const html = root.outerHTML;
  controls.forEach(c => c.removeAttribute(%s));
  return {found: true, html: html, states: states};
})()`

type captured struct {
	Found  bool         `json:"found"`
	HTML   string       `json:"html"`
	States []form.State `json:"states"`
}

// Capture snapshots the first element matching selector.
func (t *tab) Capture(ctx context.Context, selector string) (*form.Element, error) {
	key := uuid.NewString()
	script := fmt.Sprintf(captureScript, jsString(selector), jsString(key), jsString(form.KeyAttr), jsString(form.KeyAttr))

	var res captured
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return nil, newError(KindRaster, "capturing element", err)
	}
	if !res.Found {
		return nil, newError(KindConfig, fmt.Sprintf("selector %q", selector), ErrElementNotFound)
	}

	el, err := form.Parse(res.HTML)
	if err != nil {
		return nil, newError(KindRaster, "parsing captured markup", err)
	}
	matched := el.Apply(res.States)
	t.logger.Debugf("pdfexport: captured %q with %d/%d control states", selector, matched, len(res.States))
	return el, nil
}

// attachScript mounts the container markup. Screenshots cannot reach
// negative page coordinates, so the container is parked below the
// document rather than left of it.
const attachScript = `(() => {
  const tpl = document.createElement('template');
  tpl.innerHTML = %s;
  const el = tpl.content.firstElementChild;
  if (!el) return false;
  el.style.top = (document.documentElement.scrollHeight + 100) + 'px';
  document.body.appendChild(el);
  return true;
})()`

func (t *tab) Attach(ctx context.Context, c *Container) error {
	markup, err := form.Render(c.Node)
	if err != nil {
		return err
	}
	var ok bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(attachScript, jsString(markup)), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("container %s has no element", c.ID)
	}
	return nil
}

const detachScript = `(() => {
  document.querySelectorAll(%s).forEach(el => el.remove());
  return true;
})()`

func (t *tab) Detach(ctx context.Context, c *Container) error {
	var ok bool
	return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(detachScript, jsString(c.Selector())), &ok))
}

// measureScript waits for images in the container and returns the page
// rectangle of the mounted element. Without cross-origin loading, foreign
// images are dropped the way a tainted canvas would drop them.
const measureScript = `(async () => {
  const box = document.querySelector(%s);
  if (!box) return {found: false};
  const target = box.firstElementChild || box;
  const imgs = Array.from(box.querySelectorAll('img'));
  if (!%t) {
    for (const img of imgs) {
      try {
        if (new URL(img.src, location.href).origin !== location.origin) img.removeAttribute('src');
      } catch (e) {}
    }
  }
  await Promise.all(imgs.map(img => img.complete ? null : new Promise(r => { img.onload = img.onerror = r; })));
  if (document.fonts && document.fonts.ready) await document.fonts.ready;
  const r = target.getBoundingClientRect();
  return {found: true, x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
})()`

type rect struct {
	Found  bool    `json:"found"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (t *tab) Rasterize(ctx context.Context, c *Container, opts RasterOptions) (image.Image, error) {
	var r rect
	awaitPromise := func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}
	script := fmt.Sprintf(measureScript, jsString(c.Selector()), opts.CrossOrigin)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &r, awaitPromise)); err != nil {
		return nil, err
	}
	if !r.Found {
		return nil, fmt.Errorf("container %s is not attached", c.ID)
	}
	if r.Width < 1 || r.Height < 1 {
		return nil, ErrEmptyRaster
	}

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			WithClip(&page.Viewport{
				X:      r.X,
				Y:      r.Y,
				Width:  r.Width,
				Height: r.Height,
				Scale:  opts.Scale,
			}).
			Do(ctx)
		return err
	})); err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	t.logger.Debugf("pdfexport: captured %dx%d px at scale %.1f", img.Bounds().Dx(), img.Bounds().Dy(), opts.Scale)
	return img, nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
