package tui

// KeyBinding describes a keyboard shortcut for the help bar.
type KeyBinding struct {
	Key  string
	Desc string
}

var shortHelp = []KeyBinding{
	{Key: "space", Desc: "pause/resume"},
	{Key: "r", Desc: "refresh AI"},
	{Key: "a", Desc: "AI on/off"},
	{Key: "s", Desc: "source"},
	{Key: "?", Desc: "help"},
	{Key: "q", Desc: "quit"},
}
