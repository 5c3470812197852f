package tui

import (
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// floater is one piece of text drifting up the screen.
type floater struct {
	text  string
	x     int
	start int // row it was spawned on
	age   time.Duration
}

// field holds the live floats and moves them one frame at a time. Floats
// rise from the bottom row to the top over their lifetime and fade out.
type field struct {
	width, height int
	lifetime      time.Duration
	floats        []floater
	rng           *rand.Rand
}

func newField(lifetime time.Duration, rng *rand.Rand) *field {
	if lifetime <= 0 {
		lifetime = 7 * time.Second
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &field{width: 80, height: 23, lifetime: lifetime, rng: rng}
}

func (f *field) resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	f.width, f.height = width, height
}

func (f *field) live() int { return len(f.floats) }

func (f *field) clear() { f.floats = nil }

func (f *field) spawn(text string) {
	w := lipgloss.Width(text)
	x := 0
	if f.width > w {
		x = f.rng.IntN(f.width - w + 1)
	}
	f.floats = append(f.floats, floater{text: text, x: x, start: f.height - 1})
}

// advance ages every float by dt and drops the expired ones.
func (f *field) advance(dt time.Duration) {
	kept := f.floats[:0]
	for _, fl := range f.floats {
		fl.age += dt
		if fl.age < f.lifetime {
			kept = append(kept, fl)
		}
	}
	f.floats = kept
}

func (f *field) progress(fl floater) float64 {
	return float64(fl.age) / float64(f.lifetime)
}

func (f *field) row(fl floater) int {
	r := fl.start - int(f.progress(fl)*float64(fl.start+1))
	if r < 0 {
		return 0
	}
	if r >= f.height {
		return f.height - 1
	}
	return r
}

// render draws the field. Where floats overlap on a row the one further
// left wins.
func (f *field) render() string {
	rows := make([][]floater, f.height)
	for _, fl := range f.floats {
		r := f.row(fl)
		rows[r] = append(rows[r], fl)
	}

	lines := make([]string, f.height)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		sort.SliceStable(row, func(a, b int) bool { return row[a].x < row[b].x })
		var sb strings.Builder
		cursor := 0
		for _, fl := range row {
			if fl.x < cursor {
				continue
			}
			sb.WriteString(strings.Repeat(" ", fl.x-cursor))
			sb.WriteString(floatStyle(f.progress(fl)).Render(fl.text))
			cursor = fl.x + lipgloss.Width(fl.text)
		}
		lines[i] = sb.String()
	}
	return strings.Join(lines, "\n")
}
