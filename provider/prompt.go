package provider

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/DachengChen/floatwords/ai"
)

// Time-of-day buckets used in prompts.
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
	LateNight = "late-night"
)

// TimeOfDay buckets a wall-clock hour: [5,12) morning, [12,18) afternoon,
// [18,23) evening, anything else late-night.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 23:
		return Evening
	default:
		return LateNight
	}
}

// promptData feeds the prompt template.
type promptData struct {
	N          int
	Date       string
	Weekday    string
	TimeOfDay  string
	City       string
	Weather    string
	Salutation string
	UserHint   string
}

func renderPrompt(tmpl string, d promptData) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = ai.DefaultPromptTemplate
	}
	t, err := template.New("prompt").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, d); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

func snapshotAt(now time.Time) ContextSnapshot {
	return ContextSnapshot{
		Date:      now.Format(DateLayout),
		Weekday:   now.Weekday().String(),
		TimeOfDay: TimeOfDay(now.Hour()),
	}
}
