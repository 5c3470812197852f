package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama implements Client for local Ollama instances using the native
// /api/chat endpoint with JSON output forced.
type Ollama struct {
	host string
	http *http.Client
}

var _ Client = (*Ollama)(nil)

// NewOllama creates an Ollama client.
func NewOllama(host string, hc *http.Client) *Ollama {
	if host == "" {
		host = "http://localhost:11434"
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Ollama{host: strings.TrimRight(host, "/"), http: hc}
}

func (o *Ollama) Name() string {
	return "ollama"
}

func (o *Ollama) Complete(ctx context.Context, r Request) (string, error) {
	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	body := map[string]interface{}{
		"model":    r.Model,
		"messages": []chatMsg{{Role: "user", Content: r.Prompt}},
		"stream":   false,
		"format":   "json",
		"options":  map[string]interface{}{"temperature": r.Temperature},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := o.host + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed (is Ollama running at %s?): %w", o.host, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Backend: "ollama", Code: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("ollama parse error: %w", err)
	}

	if result.Message.Content == "" {
		return "", ErrNoChoices
	}

	return result.Message.Content, nil
}
