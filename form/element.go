package form

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attributes understood by the cloner.
const (
	// KeyAttr carries the temporary identifier stamped on a live control
	// before its markup is captured. It is stripped from clones.
	KeyAttr = "data-pdfexport-key"

	// IgnoreAttr excludes an element and its subtree from clones.
	IgnoreAttr = "data-pdfexport-ignore"
)

// ErrNoRoot is returned by [Parse] when the markup contains no element.
var ErrNoRoot = errors.New("form: markup has no root element")

// State is the runtime state of one form control.
type State struct {
	// Key matches the control's KeyAttr. Empty means positional matching.
	Key string `json:"key,omitempty"`

	Tag  string `json:"tag,omitempty"`
	Type string `json:"type,omitempty"`

	Value   string `json:"value"`
	Checked bool   `json:"checked"`

	// SelectedIndex is the selected option of a select; negative means no
	// selection.
	SelectedIndex int `json:"selectedIndex"`
}

// Element is a DOM subtree plus the live state of its form controls.
type Element struct {
	Root *html.Node

	states map[*html.Node]State
}

// NewElement wraps root. Controls start with no live state, which means
// their markup is taken as current.
func NewElement(root *html.Node) *Element {
	return &Element{Root: root, states: make(map[*html.Node]State)}
}

// Parse builds an Element from an HTML fragment. The first element in the
// fragment becomes the root.
//
// A fragment rooted at <body> or <html> is parsed as a document and its body
// becomes the root, renamed to a <div> that keeps the body's attributes and
// children, so it can be mounted inside another element.
func Parse(markup string) (*Element, error) {
	switch firstTag(markup) {
	case atom.Body, atom.Html:
		return parseDocumentBody(markup)
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("form: parsing markup: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return NewElement(n), nil
		}
	}
	return nil, ErrNoRoot
}

// firstTag returns the atom of the first start tag in markup.
func firstTag(markup string) atom.Atom {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return 0
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			return atom.Lookup(name)
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) != "" {
				return 0
			}
		}
	}
}

func parseDocumentBody(markup string) (*Element, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("form: parsing markup: %w", err)
	}
	body := findAtom(doc, atom.Body)
	if body == nil {
		return nil, ErrNoRoot
	}
	body.Parent.RemoveChild(body)
	body.Data, body.DataAtom = "div", atom.Div
	return NewElement(body), nil
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findAtom(c, a); f != nil {
			return f
		}
	}
	return nil
}

// Controls returns the input, textarea and select elements under e in
// document order.
func (e *Element) Controls() []*html.Node {
	return Controls(e.Root)
}

// SetState records the live state of control n.
func (e *Element) SetState(n *html.Node, s State) {
	if e.states == nil {
		e.states = make(map[*html.Node]State)
	}
	e.states[n] = s
}

// State returns the live state of control n. Controls without a recorded
// state report the state their markup describes; ok is false for them.
func (e *Element) State(n *html.Node) (s State, ok bool) {
	if s, ok := e.states[n]; ok {
		return s, true
	}
	return markupState(n), false
}

// Apply attaches captured states to the controls of e and reports how many
// were matched.
//
// A state with a Key goes to the control whose KeyAttr equals it. A state
// without a Key goes to the control at the same position in document order.
// States with no counterpart are skipped, and so are controls without a
// state.
func (e *Element) Apply(states []State) int {
	controls := e.Controls()
	byKey := make(map[string]*html.Node, len(controls))
	for _, c := range controls {
		if k, ok := attr(c, KeyAttr); ok && k != "" {
			byKey[k] = c
		}
	}

	matched := 0
	for i, s := range states {
		var target *html.Node
		if s.Key != "" {
			target = byKey[s.Key]
		} else if i < len(controls) {
			target = controls[i]
		}
		if target == nil {
			continue
		}
		e.SetState(target, s)
		matched++
	}
	return matched
}

// Controls returns the input, textarea and select elements under root
// (root included) in document order.
func Controls(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isControl(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// Render serializes n to HTML.
func Render(n *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func isControl(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Namespace != "" {
		return false
	}
	switch n.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return true
	}
	return false
}

// markupState reads the state a control would have right after loading.
func markupState(n *html.Node) State {
	s := State{Tag: n.Data, SelectedIndex: -1}
	switch n.DataAtom {
	case atom.Input:
		s.Type = inputType(n)
		s.Value, _ = attr(n, "value")
		_, s.Checked = attr(n, "checked")
	case atom.Textarea:
		s.Value = textContent(n)
	case atom.Select:
		opts := options(n)
		for i, o := range opts {
			if _, ok := attr(o, "selected"); ok {
				s.SelectedIndex = i
			}
		}
		if s.SelectedIndex < 0 && len(opts) > 0 {
			if _, multiple := attr(n, "multiple"); !multiple {
				s.SelectedIndex = 0
			}
		}
		if s.SelectedIndex >= 0 {
			s.Value = optionValue(opts[s.SelectedIndex])
		}
	}
	if k, ok := attr(n, KeyAttr); ok {
		s.Key = k
	}
	return s
}

func inputType(n *html.Node) string {
	t, _ := attr(n, "type")
	return strings.ToLower(strings.TrimSpace(t))
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// options lists the option elements of a select, optgroups included.
func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Option:
				out = append(out, c)
			case atom.Optgroup:
				walk(c)
			}
		}
	}
	walk(sel)
	return out
}

// optionValue is the value attribute, or the collapsed text like a browser.
func optionValue(o *html.Node) string {
	if v, ok := attr(o, "value"); ok {
		return v
	}
	return strings.Join(strings.Fields(textContent(o)), " ")
}
