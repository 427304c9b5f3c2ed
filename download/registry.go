// Package download hands out short-lived URLs for generated files.
//
// A [Registry] plays the part of a browser's object URLs: [Registry.Create]
// returns a URL for an in-memory file, and the URL is revoked after a fixed
// delay. The delay is a best-effort release that gives the client time to
// start the transfer; it is not a guarantee that the transfer has started,
// nor that the memory is freed at an exact moment.
package download

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRevokeDelay is how long a URL stays valid after creation.
const DefaultRevokeDelay = time.Second

// DefaultPrefix is the path prefix of generated URLs.
const DefaultPrefix = "/downloads/"

// Entry is a registered file.
type Entry struct {
	ID          string
	FileName    string
	ContentType string
	Data        []byte
	Created     time.Time
}

type entry struct {
	Entry
	timer *time.Timer
}

// Registry maps generated URLs to in-memory files. It is safe for
// concurrent use.
type Registry struct {
	prefix string
	delay  time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a [Registry].
type Option func(*Registry)

// WithPrefix sets the path prefix of generated URLs.
func WithPrefix(prefix string) Option {
	return func(r *Registry) {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		r.prefix = prefix
	}
}

// WithRevokeDelay sets how long URLs stay valid. A zero or negative value
// keeps them until [Registry.Revoke] or [Registry.Close].
func WithRevokeDelay(d time.Duration) Option {
	return func(r *Registry) {
		r.delay = d
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		prefix:  DefaultPrefix,
		delay:   DefaultRevokeDelay,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create registers data and returns its URL path. The URL is revoked after
// the configured delay.
func (r *Registry) Create(data []byte, fileName, contentType string) string {
	id := uuid.NewString()
	e := &entry{Entry: Entry{
		ID:          id,
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
		Created:     r.now(),
	}}

	r.mu.Lock()
	r.entries[id] = e
	if r.delay > 0 {
		e.timer = time.AfterFunc(r.delay, func() { r.Revoke(id) })
	}
	r.mu.Unlock()

	return r.prefix + id
}

// Lookup returns the entry for a URL path or a bare ID.
func (r *Registry) Lookup(urlOrID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[r.id(urlOrID)]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Revoke drops an entry and reports whether it existed.
func (r *Registry) Revoke(urlOrID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.id(urlOrID)
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(r.entries, id)
	return true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close revokes every entry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(r.entries, id)
	}
}

func (r *Registry) id(urlOrID string) string {
	return strings.TrimPrefix(urlOrID, r.prefix)
}
