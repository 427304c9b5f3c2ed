package form

import (
	"slices"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Clone returns a detached deep copy of e.Root whose markup carries the
// live state of every control.
//
// The original-to-copy correspondence is recorded while copying, so state
// lands on the right control even when subtrees marked with IgnoreAttr are
// left out. KeyAttr is removed from the copy.
func (e *Element) Clone() *html.Node {
	if e == nil || e.Root == nil {
		return nil
	}
	pairs := make(map[*html.Node]*html.Node)
	root := copyTree(e.Root, pairs)
	for orig, s := range e.states {
		if c, ok := pairs[orig]; ok {
			applyState(c, s)
		}
	}
	stripKeys(root)
	return root
}

// Clone is shorthand for e.Clone.
func Clone(e *Element) *html.Node {
	return e.Clone()
}

func copyTree(n *html.Node, pairs map[*html.Node]*html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	pairs[n] = c
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ignored(ch) {
			continue
		}
		c.AppendChild(copyTree(ch, pairs))
	}
	return c
}

func ignored(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	_, ok := attr(n, IgnoreAttr)
	return ok
}

// applyState writes s into the markup of control c.
func applyState(c *html.Node, s State) {
	switch c.DataAtom {
	case atom.Input:
		switch inputType(c) {
		case "checkbox", "radio":
			if s.Checked {
				setAttr(c, "checked", "")
			} else {
				removeAttr(c, "checked")
			}
		default:
			setAttr(c, "value", s.Value)
		}
	case atom.Textarea:
		for c.FirstChild != nil {
			c.RemoveChild(c.FirstChild)
		}
		c.AppendChild(&html.Node{Type: html.TextNode, Data: s.Value})
	case atom.Select:
		opts := options(c)
		for i, o := range opts {
			if optionValue(o) == s.Value {
				selectOption(opts, i)
				break
			}
		}
		if s.SelectedIndex >= 0 && s.SelectedIndex < len(opts) {
			selectOption(opts, s.SelectedIndex)
		}
	}
}

func selectOption(opts []*html.Node, idx int) {
	for i, o := range opts {
		if i == idx {
			setAttr(o, "selected", "")
		} else {
			removeAttr(o, "selected")
		}
	}
}

func stripKeys(n *html.Node) {
	if n.Type == html.ElementNode {
		removeAttr(n, KeyAttr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripKeys(c)
	}
}
