package spawner

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Printer is a Sink for headless mode: each float is one line on out and
// counts as live until its lifetime has passed.
type Printer struct {
	out      io.Writer
	lifetime time.Duration
	now      func() time.Time

	mu      sync.Mutex
	expires []time.Time
}

// NewPrinter writes floats to out. A nil now uses time.Now.
func NewPrinter(out io.Writer, lifetime time.Duration, now func() time.Time) *Printer {
	if now == nil {
		now = time.Now
	}
	return &Printer{out: out, lifetime: lifetime, now: now}
}

var stampColor = color.New(color.FgHiBlack)

func (p *Printer) Spawn(text string) {
	now := p.now()
	p.mu.Lock()
	p.expires = append(p.expires, now.Add(p.lifetime))
	p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", stampColor.Sprint(now.Format("15:04:05")), text)
}

func (p *Printer) Live() int {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.expires[:0]
	for _, e := range p.expires {
		if e.After(now) {
			kept = append(kept, e)
		}
	}
	p.expires = kept
	return len(kept)
}
