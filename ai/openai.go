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

// OpenAI implements Client for any OpenAI-compatible chat API
// (DeepSeek, OpenAI and friends).
type OpenAI struct {
	name    string
	baseURL string
	http    *http.Client
}

var _ Client = (*OpenAI)(nil)

// NewOpenAI creates a client for baseURL (without /v1/chat/completions).
func NewOpenAI(name, baseURL string, hc *http.Client) *OpenAI {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &OpenAI{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

func (o *OpenAI) Name() string {
	return o.name
}

func (o *OpenAI) Complete(ctx context.Context, r Request) (string, error) {
	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	body := map[string]interface{}{
		"model":       r.Model,
		"temperature": r.Temperature,
		"messages":    []chatMsg{{Role: "user", Content: r.Prompt}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := o.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", o.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s read body: %w", o.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Backend: o.name, Code: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%s parse error: %w", o.name, err)
	}

	if len(result.Choices) == 0 {
		return "", ErrNoChoices
	}

	return result.Choices[0].Message.Content, nil
}
