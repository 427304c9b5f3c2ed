package form

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

func mustParse(t *testing.T, markup string) *Element {
	t.Helper()
	el, err := Parse(markup)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return el
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func attrVal(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

func selectedIndex(sel *html.Node) int {
	for i, o := range options(sel) {
		if hasAttr(o, "selected") {
			return i
		}
	}
	return -1
}

const formMarkup = `<form id="f">
  <input type="checkbox" name="agree">
  <input type="text" name="who" value="markup">
  <select name="pick">
    <option value="a" selected>A</option>
    <option value="b">B</option>
    <option value="c">C</option>
  </select>
  <textarea name="notes">from markup</textarea>
</form>`

func TestClone_LiveValuesWin(t *testing.T) {
	el := mustParse(t, formMarkup)
	matched := el.Apply([]State{
		{Tag: "input", Type: "checkbox", Checked: true, SelectedIndex: -1},
		{Tag: "input", Type: "text", Value: "abc", SelectedIndex: -1},
		{Tag: "select", Value: "c", SelectedIndex: 2},
		{Tag: "textarea", Value: "typed\nby user", SelectedIndex: -1},
	})
	if matched != 4 {
		t.Fatalf("Apply matched %d controls, want 4", matched)
	}

	clone := el.Clone()
	controls := Controls(clone)
	if len(controls) != 4 {
		t.Fatalf("clone has %d controls, want 4", len(controls))
	}
	if !hasAttr(controls[0], "checked") {
		t.Error("checkbox is not checked in clone")
	}
	if got := attrVal(controls[1], "value"); got != "abc" {
		t.Errorf("text value = %q, want %q", got, "abc")
	}
	if got := selectedIndex(controls[2]); got != 2 {
		t.Errorf("selectedIndex = %d, want 2", got)
	}
	if got := textContent(controls[3]); got != "typed\nby user" {
		t.Errorf("textarea content = %q", got)
	}
}

func TestClone_DoesNotTouchOriginal(t *testing.T) {
	el := mustParse(t, formMarkup)
	before, err := Render(el.Root)
	if err != nil {
		t.Fatal(err)
	}
	el.Apply([]State{
		{Checked: true, SelectedIndex: -1},
		{Value: "changed", SelectedIndex: -1},
		{Value: "b", SelectedIndex: 1},
		{Value: "changed", SelectedIndex: -1},
	})
	_ = el.Clone()

	after, err := Render(el.Root)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(before, after); d != "" {
		t.Errorf("original markup changed (-before +after):\n%s", d)
	}
}

func TestClone_UncheckRemovesAttribute(t *testing.T) {
	el := mustParse(t, `<div><input type="radio" name="r" checked><input type="RADIO" name="r"></div>`)
	el.Apply([]State{{Checked: false}, {Checked: true}})

	controls := Controls(el.Clone())
	if hasAttr(controls[0], "checked") {
		t.Error("first radio still checked")
	}
	if !hasAttr(controls[1], "checked") {
		t.Error("second radio not checked")
	}
}

func TestClone_NegativeSelectedIndexSkipped(t *testing.T) {
	el := mustParse(t, `<select><option value="x">X</option><option value="y" selected>Y</option></select>`)
	el.Apply([]State{{Tag: "select", SelectedIndex: -1}})

	sel := Controls(el.Clone())[0]
	if got := selectedIndex(sel); got != 1 {
		t.Errorf("selectedIndex = %d, want markup selection 1", got)
	}
}

func TestClone_SelectByValueWithoutValueAttribute(t *testing.T) {
	el := mustParse(t, `<select><optgroup label="g"><option> One </option><option>Two  Words</option></optgroup></select>`)
	el.Apply([]State{{Value: "Two Words", SelectedIndex: -1}})

	sel := Controls(el.Clone())[0]
	if got := selectedIndex(sel); got != 1 {
		t.Errorf("selectedIndex = %d, want 1", got)
	}
}

func TestApply_PositionalCountMismatch(t *testing.T) {
	el := mustParse(t, `<div><input value="one"><input value="two"></div>`)

	// More states than controls: the extra state is dropped.
	if got := el.Apply([]State{{Value: "1"}, {Value: "2"}, {Value: "3"}}); got != 2 {
		t.Errorf("Apply matched %d, want 2", got)
	}

	// Fewer states than controls: the remaining control keeps its markup.
	el = mustParse(t, `<div><input value="one"><input value="two"></div>`)
	if got := el.Apply([]State{{Value: "1"}}); got != 1 {
		t.Errorf("Apply matched %d, want 1", got)
	}
	var values []string
	for _, c := range Controls(el.Clone()) {
		values = append(values, attrVal(c, "value"))
	}
	if d := cmp.Diff([]string{"1", "two"}, values); d != "" {
		t.Errorf("values mismatch (-want +got):\n%s", d)
	}
}

func TestApply_KeyedMatchingSurvivesIgnoredSubtree(t *testing.T) {
	el := mustParse(t, `<div>
  <div data-pdfexport-ignore><input data-pdfexport-key="k-0" value="hidden"></div>
  <input data-pdfexport-key="k-1" value="shown">
</div>`)

	// Reverse order on purpose: keys, not positions, decide.
	if got := el.Apply([]State{{Key: "k-1", Value: "live"}, {Key: "k-0", Value: "secret"}, {Key: "k-9", Value: "nobody"}}); got != 2 {
		t.Fatalf("Apply matched %d, want 2", got)
	}

	clone := el.Clone()
	controls := Controls(clone)
	if len(controls) != 1 {
		t.Fatalf("clone has %d controls, want 1", len(controls))
	}
	if got := attrVal(controls[0], "value"); got != "live" {
		t.Errorf("value = %q, want %q", got, "live")
	}

	out, err := Render(clone)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, KeyAttr) {
		t.Errorf("clone still carries %s: %s", KeyAttr, out)
	}
	if strings.Contains(out, "secret") || strings.Contains(out, "hidden") {
		t.Errorf("ignored subtree leaked into clone: %s", out)
	}
}

func TestElement_StateFallsBackToMarkup(t *testing.T) {
	el := mustParse(t, formMarkup)
	controls := el.Controls()

	want := []State{
		{Tag: "input", Type: "checkbox", SelectedIndex: -1},
		{Tag: "input", Type: "text", Value: "markup", SelectedIndex: -1},
		{Tag: "select", Value: "a", SelectedIndex: 0},
		{Tag: "textarea", Value: "from markup", SelectedIndex: -1},
	}
	for i, c := range controls {
		got, ok := el.State(c)
		if ok {
			t.Errorf("control %d reported a live state", i)
		}
		if d := cmp.Diff(want[i], got); d != "" {
			t.Errorf("control %d state mismatch (-want +got):\n%s", i, d)
		}
	}
}

func TestParse_NoElement(t *testing.T) {
	_, err := Parse("just text")
	if !errors.Is(err, ErrNoRoot) {
		t.Fatalf("expected ErrNoRoot, got %v", err)
	}
}

func TestParse_BodyRootKeepsAllChildren(t *testing.T) {
	el := mustParse(t, `<body class="page"><h1>Invoice</h1><p>Line items</p><input value="x"></body>`)

	if el.Root.Data != "div" || attrVal(el.Root, "class") != "page" {
		t.Fatalf("root = <%s class=%q>, want <div class=\"page\">", el.Root.Data, attrVal(el.Root, "class"))
	}
	if el.Root.Parent != nil {
		t.Error("root is still attached to the parsed document")
	}
	var tags []string
	for c := el.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			tags = append(tags, c.Data)
		}
	}
	if d := cmp.Diff([]string{"h1", "p", "input"}, tags); d != "" {
		t.Errorf("children mismatch (-want +got):\n%s", d)
	}
	if n := len(el.Controls()); n != 1 {
		t.Errorf("controls = %d, want 1", n)
	}

	out, err := Render(el.Clone())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<h1>Invoice</h1>", "<p>Line items</p>", `value="x"`} {
		if !strings.Contains(out, want) {
			t.Errorf("clone %s lacks %s", out, want)
		}
	}
}

func TestParse_BodyRootMatchesKeyedStates(t *testing.T) {
	el := mustParse(t, `<body>
  <input type="text" data-pdfexport-key="k-0">
  <section><input type="checkbox" data-pdfexport-key="k-1"></section>
  <select data-pdfexport-key="k-2"><option>a</option><option>b</option></select>
</body>`)

	matched := el.Apply([]State{
		{Key: "k-0", Value: "typed", SelectedIndex: -1},
		{Key: "k-1", Checked: true, SelectedIndex: -1},
		{Key: "k-2", Value: "b", SelectedIndex: 1},
	})
	if matched != 3 {
		t.Fatalf("matched %d states, want 3", matched)
	}
	out, err := Render(el.Clone())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`value="typed"`, `checked=""`, `<option selected="">b</option>`} {
		if !strings.Contains(out, want) {
			t.Errorf("clone %s lacks %s", out, want)
		}
	}
	if strings.Contains(out, KeyAttr) {
		t.Error("clone still carries key attributes")
	}
}

func TestParse_HTMLRootUsesBody(t *testing.T) {
	el := mustParse(t, `<html><head><title>t</title></head><body id="b"><p>one</p><p>two</p></body></html>`)
	if el.Root.Data != "div" || attrVal(el.Root, "id") != "b" {
		t.Fatalf("root = <%s id=%q>, want the body as <div id=\"b\">", el.Root.Data, attrVal(el.Root, "id"))
	}
	out, _ := Render(el.Root)
	if strings.Contains(out, "<title>") || strings.Count(out, "<p>") != 2 {
		t.Errorf("root markup = %s", out)
	}
}
