// Package form snapshots a DOM subtree together with the runtime state of
// its form controls.
//
// A browser keeps the current value of a control (what the user typed,
// ticked or picked) apart from the markup attribute it was loaded with.
// An [Element] mirrors that split: the tree holds the markup, and a side
// table holds the live [State] of each input, textarea and select. [Clone]
// produces a detached copy whose markup reflects the live state, so anything
// that renders markup sees what the user sees.
//
//	el, err := form.Parse(markup)
//	el.Apply(states)        // states captured from a live page
//	snapshot := el.Clone()  // markup now carries the live values
package form
