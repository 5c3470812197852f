package ai

import (
	"context"
	"encoding/json"
	"time"
)

// Placeholder is an offline backend for development. It answers every
// prompt with a small fixed batch in the expected JSON shape.
type Placeholder struct {
	Latency time.Duration
}

var _ Client = (*Placeholder)(nil)

func NewPlaceholder() *Placeholder {
	return &Placeholder{Latency: 300 * time.Millisecond}
}

func (p *Placeholder) Name() string {
	return "placeholder"
}

var placeholderTexts = []string{
	"Take a sip of water",
	"Roll your shoulders back",
	"Look at something far away for a moment",
	"One small step is still a step",
	"You are doing better than you think",
}

func (p *Placeholder) Complete(ctx context.Context, r Request) (string, error) {
	// Simulate network latency
	select {
	case <-time.After(p.Latency):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	type item struct {
		Text   string   `json:"text"`
		Tags   []string `json:"tags"`
		Weight float64  `json:"weight"`
	}
	out := struct {
		Date  string `json:"date"`
		Items []item `json:"items"`
	}{Date: time.Now().Format("2006-01-02")}
	for _, t := range placeholderTexts {
		out.Items = append(out.Items, item{Text: t, Tags: []string{"placeholder"}, Weight: 1})
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
