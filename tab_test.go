package pdfexport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/porticus-lab/go-pdfexport/form"
)

// loadTab opens html in a new tab of a fresh browser.
func loadTab(t *testing.T, html string) context.Context {
	t.Helper()
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("skipping: Chrome/Chromium not found")
	}
	c, err := NewConverter(WithNoSandbox())
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := chromedp.NewContext(c.browserCtx)
	t.Cleanup(cancel)
	if err := chromedp.Run(ctx, chromedp.Navigate("file://"+path), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		t.Fatalf("loading page: %v", err)
	}
	return ctx
}

func TestTab_CaptureLiveState(t *testing.T) {
	ctx := loadTab(t, `<!DOCTYPE html><html><body>
<div id="f">
  <input type="text" value="initial">
  <input type="checkbox">
  <select><option>a</option><option>b</option><option>c</option></select>
  <textarea></textarea>
</div>
<script>
  const f = document.getElementById('f');
  f.querySelector('input[type=text]').value = 'typed';
  f.querySelector('input[type=checkbox]').checked = true;
  f.querySelector('select').selectedIndex = 2;
  f.querySelector('textarea').value = 'notes';
</script>
</body></html>`)

	tb := &tab{logger: defaultConfig().logger}
	el, err := tb.Capture(ctx, "#f")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	controls := el.Controls()
	if len(controls) != 4 {
		t.Fatalf("captured %d controls, want 4", len(controls))
	}
	want := []struct {
		value   string
		checked bool
		index   int
	}{
		{"typed", false, -1},
		{"on", true, -1},
		{"c", false, 2},
		{"notes", false, -1},
	}
	for i, w := range want {
		s, ok := el.State(controls[i])
		if !ok {
			t.Errorf("control %d has no live state", i)
			continue
		}
		if s.Value != w.value || s.Checked != w.checked || s.SelectedIndex != w.index {
			t.Errorf("control %d state = %+v, want value %q checked %v index %d", i, s, w.value, w.checked, w.index)
		}
	}

	markup, err := form.Render(el.Clone())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := form.Parse(markup); err != nil {
		t.Errorf("clone markup does not parse: %v", err)
	}
}

func TestTab_AttachDetach(t *testing.T) {
	ctx := loadTab(t, `<!DOCTYPE html><html><body><p id="p" style="width:200px;height:50px">x</p></body></html>`)

	tb := &tab{logger: defaultConfig().logger}
	el, err := tb.Capture(ctx, "#p")
	if err != nil {
		t.Fatal(err)
	}
	img, err := rasterize(ctx, tb, tb, el.Clone(), RasterOptions{Scale: 2, CrossOrigin: true}, tb.logger)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if b := img.Bounds(); b.Dx() < 390 || b.Dx() > 410 {
		t.Errorf("bitmap width = %d, want about 400", b.Dx())
	}

	var left int
	if err := chromedp.Run(ctx, chromedp.Evaluate(`document.querySelectorAll('[`+ContainerAttr+`]').length`, &left)); err != nil {
		t.Fatal(err)
	}
	if left != 0 {
		t.Errorf("%d container(s) left in the page", left)
	}
}

func TestTab_CaptureBodyKeepsEveryChild(t *testing.T) {
	ctx := loadTab(t, `<!DOCTYPE html><html><body class="page">
<h1>Invoice</h1>
<p>Line items</p>
<input id="a" type="text" value="initial">
<div><input id="b" type="checkbox"></div>
<select id="c"><option>x</option><option>y</option></select>
<script>
  document.getElementById('a').value = 'typed';
  document.getElementById('b').checked = true;
  document.getElementById('c').selectedIndex = 1;
</script>
</body></html>`)

	tb := &tab{logger: defaultConfig().logger}
	el, err := tb.Capture(ctx, DefaultSelector)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	controls := el.Controls()
	if len(controls) != 3 {
		t.Fatalf("captured %d controls, want 3", len(controls))
	}
	for i, c := range controls {
		if _, ok := el.State(c); !ok {
			t.Errorf("control %d has no live state", i)
		}
	}

	markup, err := form.Render(el.Clone())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Invoice", "Line items", `value="typed"`, "checked", `<option selected="">y</option>`} {
		if !strings.Contains(markup, want) {
			t.Errorf("clone lacks %s", want)
		}
	}

	img, err := rasterize(ctx, tb, tb, el.Clone(), RasterOptions{Scale: 1, CrossOrigin: true}, tb.logger)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if img.Bounds().Dy() < 60 {
		t.Errorf("bitmap height = %d, want the whole body", img.Bounds().Dy())
	}
}

func TestTab_AttachPlacesContainerBelowDocument(t *testing.T) {
	ctx := loadTab(t, `<!DOCTYPE html><html><body><p style="height:300px">x</p></body></html>`)

	tb := &tab{logger: defaultConfig().logger}
	c := newContainer(mustParse("<p>clone</p>").Clone())
	if err := tb.Attach(ctx, c); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer tb.Detach(context.Background(), c)

	var got struct {
		Position   string  `json:"position"`
		Left       string  `json:"left"`
		Background string  `json:"background"`
		Top        float64 `json:"top"`
		Viewport   float64 `json:"viewport"`
	}
	script := `(() => {
  const el = document.querySelector(` + jsString(c.Selector()) + `);
  const cs = getComputedStyle(el);
  return {position: cs.position, left: cs.left, background: cs.backgroundColor,
          top: el.getBoundingClientRect().top + window.scrollY, viewport: window.innerHeight};
})()`
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &got)); err != nil {
		t.Fatal(err)
	}
	if got.Position != "absolute" || got.Left != "0px" || got.Background != "rgb(255, 255, 255)" {
		t.Errorf("mounted style = %+v, want the container style", got)
	}
	if got.Top < got.Viewport {
		t.Errorf("container top %.0f is inside the %.0f px viewport", got.Top, got.Viewport)
	}
}
