// app.go is the top-level Bubble Tea model.
//
// Flow:
//  1. A spawn tick asks the scheduler for a text; accepted texts become
//     floats at the bottom of the screen.
//  2. A frame tick, paced by the float speed setting, moves every float up
//     and fades it until its lifetime is over.
//  3. Controller events and settings changes arrive as messages and
//     refresh the status bar.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/floatwords/applog"
	"github.com/DachengChen/floatwords/controller"
	"github.com/DachengChen/floatwords/settings"
)

const appVersion = "0.1.0"

// defaultFrame matches the "normal" float speed.
const defaultFrame = 40 * time.Millisecond

var sourceCycle = []controller.TextSource{controller.SourceAuto, controller.SourceLocal, controller.SourceAI}

// App is the root Bubble Tea model.
type App struct {
	deps  Deps
	field *field
	frame time.Duration

	status    controller.Status
	spinner   spinner.Model
	width     int
	height    int
	showHelp  bool
	statusMsg string

	// written holds values this app saved itself. The watcher reports
	// them back and they are dropped once instead of applied twice.
	written map[string]string
}

// NewApp creates the model. Deps.Controller and Deps.Scheduler are required.
func NewApp(deps Deps) *App {
	frame := defaultFrame
	if deps.Settings != nil {
		frame = time.Duration(deps.Settings.FloatSpeedMillis()) * time.Millisecond
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StyleSpinner))
	return &App{
		deps:    deps,
		field:   newField(deps.Lifetime, deps.Rand),
		frame:   frame,
		status:  deps.Controller.Status(),
		spinner: sp,
		written: make(map[string]string),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		spawnTick(a.deps.Scheduler.Config().Interval),
		frameTick(a.frame),
		waitForEvent(a.deps.Controller),
		waitForSettings(a.deps.SettingsChanges),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// status bar takes the last line
		a.field.resize(msg.Width, msg.Height-1)
		return a, nil

	case tea.KeyMsg:
		if a.deps.Activity != nil {
			a.deps.Activity.Touch()
		}
		return a.handleKey(msg)

	case spawnTickMsg:
		if text, ok := a.deps.Scheduler.Next(a.field.live()); ok {
			a.field.spawn(text)
		}
		return a, spawnTick(a.deps.Scheduler.Config().Interval)

	case frameMsg:
		a.field.advance(a.frame)
		return a, frameTick(a.frame)

	case controllerEventMsg:
		a.status = a.deps.Controller.Status()
		if msg.Type == controller.EventRunningChanged && a.status.State == controller.StateStopped {
			a.field.clear()
		}
		return a, waitForEvent(a.deps.Controller)

	case exitMsg:
		return a, tea.Quit

	case settingsChangedMsg:
		a.applySettings(msg)
		return a, waitForSettings(a.deps.SettingsChanges)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) applySettings(keys []string) {
	keys = a.dropEchoes(keys)
	if len(keys) == 0 {
		return
	}
	applog.Info("settings changed", "keys", strings.Join(keys, ","))
	a.deps.Controller.ApplySettings(keys)
	if a.deps.Settings == nil {
		return
	}
	a.deps.Scheduler.ApplySettings(keys, a.deps.Settings)
	for _, k := range keys {
		if k == settings.KeyFloatSpeed {
			a.frame = time.Duration(a.deps.Settings.FloatSpeedMillis()) * time.Millisecond
		}
	}
	a.status = a.deps.Controller.Status()
}

// dropEchoes removes keys whose stored value is still the one this app
// wrote. A key changed again by someone else is kept.
func (a *App) dropEchoes(keys []string) []string {
	if len(a.written) == 0 || a.deps.Settings == nil {
		return keys
	}
	out := keys[:0:0]
	for _, k := range keys {
		want, ok := a.written[k]
		if !ok {
			out = append(out, k)
			continue
		}
		delete(a.written, k)
		if a.storedValue(k) != want {
			out = append(out, k)
		}
	}
	return out
}

func (a *App) storedValue(key string) string {
	switch key {
	case settings.KeyAIEnabled:
		return strconv.FormatBool(a.deps.Settings.AIEnabled())
	case settings.KeyTextSource:
		return a.deps.Settings.TextSource()
	}
	return ""
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctl := a.deps.Controller
	a.statusMsg = ""

	switch msg.String() {
	case "ctrl+c", "q":
		ctl.Exit()
		return a, tea.Quit

	case " ":
		ctl.Toggle()

	case "x":
		ctl.Stop()
		a.field.clear()

	case "c":
		a.field.clear()

	case "r":
		if ctl.RefreshTodayAI() {
			a.statusMsg = "regenerating today's texts..."
		} else {
			a.statusMsg = "refresh not started (AI off or already generating)"
		}

	case "a":
		enabled := !ctl.Status().AIEnabled
		ctl.SetAIEnabled(enabled)
		a.persist(settings.KeyAIEnabled, strconv.FormatBool(enabled), func(s *settings.Store) error { return s.SetAIEnabled(enabled) })
		a.statusMsg = fmt.Sprintf("AI %s", onOff(enabled))

	case "s":
		next := nextSource(ctl.Status().Source)
		ctl.SetTextSource(string(next))
		a.persist(settings.KeyTextSource, string(next), func(s *settings.Store) error { return s.SetTextSource(string(next)) })
		a.statusMsg = fmt.Sprintf("text source: %s", next)

	case "?":
		a.showHelp = !a.showHelp
	}

	a.status = ctl.Status()
	return a, nil
}

func (a *App) persist(key, value string, fn func(*settings.Store) error) {
	if a.deps.Settings == nil {
		return
	}
	if err := fn(a.deps.Settings); err != nil {
		applog.Warn("failed to save setting", "key", key, "err", err)
		a.statusMsg = "could not save setting: " + err.Error()
		return
	}
	a.written[key] = value
}

func nextSource(cur controller.TextSource) controller.TextSource {
	for i, s := range sourceCycle {
		if s == cur {
			return sourceCycle[(i+1)%len(sourceCycle)]
		}
	}
	return controller.SourceAuto
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}
	body := a.field.render()
	if a.showHelp {
		body = a.renderHelp()
	}
	return body + "\n" + a.renderStatusBar()
}

func (a *App) renderStatusBar() string {
	st := a.status

	var left []string
	left = append(left, StyleBold.Render("floatwords"))
	switch st.State {
	case controller.StateRunning:
		left = append(left, StyleSuccess.Render("running"))
	default:
		left = append(left, StyleWarning.Render(st.State.String()))
	}
	left = append(left, fmt.Sprintf("%s texts", st.Provider))
	left = append(left, StyleDimmed.Render(fmt.Sprintf("AI %s · source %s", onOff(st.AIEnabled), st.Source)))
	if st.Preparing {
		left = append(left, a.spinner.View()+StyleDimmed.Render(" generating"))
	}
	if a.statusMsg != "" {
		left = append(left, a.statusMsg)
	}
	content := strings.Join(left, "  ")

	var parts []string
	for _, h := range shortHelp {
		parts = append(parts, StyleHelpKey.Render(h.Key)+" "+StyleHelpDesc.Render(h.Desc))
	}
	right := strings.Join(parts, "  ")

	gap := a.width - lipgloss.Width(content) - lipgloss.Width(right)
	if gap < 1 {
		return StyleStatusBar.Width(a.width).Render(content)
	}
	return StyleStatusBar.Width(a.width).Render(content + strings.Repeat(" ", gap) + right)
}

func (a *App) renderHelp() string {
	help := []string{
		StyleTitle.Render("floatwords v" + appVersion),
		StyleHelpKey.Render("space") + "   Pause or resume spawning",
		StyleHelpKey.Render("x") + "       Stop and clear the screen",
		StyleHelpKey.Render("c") + "       Clear floating texts",
		StyleHelpKey.Render("r") + "       Regenerate today's AI texts",
		StyleHelpKey.Render("a") + "       Turn AI texts on or off",
		StyleHelpKey.Render("s") + "       Cycle text source (auto, local, ai)",
		StyleHelpKey.Render("?") + "       Toggle this help",
		StyleHelpKey.Render("q") + "       Quit",
		"",
		StyleDimmed.Render("Press ? to close"),
	}

	return lipgloss.NewStyle().
		Width(a.width-4).
		Height(a.height-1).
		Padding(1, 2).
		Render(strings.Join(help, "\n"))
}
