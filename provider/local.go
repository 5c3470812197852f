package provider

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/DachengChen/floatwords/applog"
)

// DefaultTexts is used when the texts file is missing, unreadable or empty.
var DefaultTexts = []string{
	"Live each day with energy",
	"Eat on time, look after yourself",
	"Believe in the potential inside you",
	"Rest when you are tired, don't force it",
	"Stay curious, explore the world",
	"Every attempt is a kind of growth",
	"Live in the moment, don't waste the time",
	"Meet people with a smile and warm the world",
	"Be patient, good surprises are on the way",
	"Get close to nature and let your mind rest",
}

// ReadTexts parses a texts file: one entry per line, trimmed, with
// surrounding "..." or "...", quoting removed and blank lines dropped.
func ReadTexts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var texts []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if t := cleanLine(sc.Text()); t != "" {
			texts = append(texts, t)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return texts, nil
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	switch {
	case len(line) >= 3 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `",`):
		line = line[1 : len(line)-2]
	case len(line) >= 2 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`):
		line = line[1 : len(line)-1]
	}
	return strings.TrimSpace(line)
}

// Local serves texts from a file on disk. It never touches the network.
type Local struct {
	path  string
	pool  pool
	ready atomic.Bool
}

var _ Provider = (*Local)(nil)

// NewLocal creates a provider for path. An empty path means defaults only.
func NewLocal(path string) *Local {
	return &Local{path: path}
}

// Path returns the texts file this provider reads.
func (l *Local) Path() string {
	return l.path
}

func (l *Local) Prepare() {
	defer func() {
		if r := recover(); r != nil {
			applog.Error("local provider prepare panicked", "panic", r)
			l.ready.Store(l.Len() > 0)
		}
	}()

	texts := DefaultTexts
	if l.path != "" {
		loaded, err := ReadTexts(l.path)
		switch {
		case err != nil && os.IsNotExist(err):
			applog.Debug("texts file not found, using defaults", "path", l.path)
		case err != nil:
			applog.Warn("texts file unreadable, using defaults", "path", l.path, "err", err)
		case len(loaded) == 0:
			applog.Warn("texts file is empty, using defaults", "path", l.path)
		default:
			texts = loaded
		}
	}

	l.pool.store(texts)
	l.ready.Store(len(texts) > 0)
	applog.Info("local texts loaded", "count", len(texts))
}

func (l *Local) IsReady() bool {
	return l.ready.Load()
}

func (l *Local) NextText() string {
	return l.pool.draw()
}

// Len returns the current pool size.
func (l *Local) Len() int {
	return len(l.pool.load())
}
