package ai

// DefaultPromptTemplate is the text/template used to ask for a day's batch.
// Fields: .N .Date .Weekday .TimeOfDay .City .Weather .Salutation .UserHint
const DefaultPromptTemplate = `You write short, warm messages that float across a desktop for a moment.

Today is {{.Date}} ({{.Weekday}}), it is {{.TimeOfDay}}.
{{- if .City}}
The user is in {{.City}}.{{end}}
{{- if .Weather}}
Current weather: {{.Weather}}.{{end}}
{{- if .Salutation}}
Address the user as "{{.Salutation}}" in a few of the messages.{{end}}
{{- if .UserHint}}
The user's own wishes: {{.UserHint}}{{end}}

Write {{.N}} distinct messages. Each one is a single line of at most 20 words:
gentle reminders, small encouragements, things to notice about the day.
Do not number them and do not use emoji.

Respond with ONLY strict JSON, no markdown fences and no commentary, in this shape:
{"date": "{{.Date}}", "items": [{"text": "...", "tags": ["..."], "weight": 1.0}]}`
