// Package provider supplies the texts shown in floats.
//
// Two variants share one capability: Local reads a static list from disk,
// Remote generates one batch per calendar day through a chat-completion
// backend and caches it as <cache dir>/<YYYY-MM-DD>.json. Callers dispatch
// through Provider and never see an error: failures become IsReady()==false
// plus a log line.
package provider

import (
	"math/rand/v2"
	"sync/atomic"
)

// Provider is implemented by Local and Remote.
type Provider interface {
	// Prepare loads or generates the pool. It is synchronous, absorbs every
	// failure and never panics.
	Prepare()

	// IsReady is true once Prepare produced at least one usable text.
	IsReady() bool

	// NextText returns a uniformly random text, or "" if the pool is empty.
	// It never does I/O.
	NextText() string
}

// pool is an immutable slice of texts replaced wholesale on every update.
type pool struct {
	items atomic.Pointer[[]string]
}

func (p *pool) store(items []string) {
	cp := append([]string(nil), items...)
	p.items.Store(&cp)
}

func (p *pool) clear() {
	p.items.Store(nil)
}

func (p *pool) load() []string {
	if ptr := p.items.Load(); ptr != nil {
		return *ptr
	}
	return nil
}

func (p *pool) draw() string {
	items := p.load()
	if len(items) == 0 {
		return ""
	}
	return items[rand.IntN(len(items))]
}
