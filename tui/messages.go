// messages.go defines Bubble Tea messages used for async communication.
//
// Timers, controller events and settings changes all reach the model as
// messages, so Update is the only place that mutates UI state.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/floatwords/controller"
)

// spawnTickMsg asks the scheduler whether a new float may appear.
type spawnTickMsg time.Time

// frameMsg advances the animation by one frame.
type frameMsg time.Time

// controllerEventMsg wraps an event from the controller.
type controllerEventMsg controller.Event

// exitMsg is sent once the controller has entered the exiting state.
type exitMsg struct{}

// settingsChangedMsg lists settings keys that changed on disk.
type settingsChangedMsg []string

func spawnTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return spawnTickMsg(t)
	})
}

func frameTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// waitForEvent blocks until the controller emits or exits.
func waitForEvent(ctl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-ctl.Events():
			return controllerEventMsg(ev)
		case <-ctl.Done():
			return exitMsg{}
		}
	}
}

// waitForSettings blocks until the next batch of changed keys. A nil or
// closed channel produces no message.
func waitForSettings(ch <-chan []string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		keys, ok := <-ch
		if !ok {
			return nil
		}
		return settingsChangedMsg(keys)
	}
}
