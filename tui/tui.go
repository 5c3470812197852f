package tui

import (
	"context"
	"math/rand/v2"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/floatwords/controller"
	"github.com/DachengChen/floatwords/idle"
	"github.com/DachengChen/floatwords/settings"
	"github.com/DachengChen/floatwords/spawner"
)

// Deps are the collaborators the UI drives.
type Deps struct {
	Controller *controller.Controller
	Scheduler  *spawner.Scheduler
	Activity   *idle.Activity  // touched on every key press
	Settings   *settings.Store // optional; toggles are persisted here

	// SettingsChanges delivers keys changed on disk, e.g. from Store.Watch.
	SettingsChanges <-chan []string

	Lifetime time.Duration
	Rand     *rand.Rand // optional, for deterministic placement in tests
}

// Run launches the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	app := NewApp(deps)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
