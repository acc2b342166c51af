// Package summarize turns a transcript into structured minutes via two LLM
// calls: one for the summary object, one for the action-item array.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"clearminutes/internal/models"
)

// ChatClient is the external text-generation call.
type ChatClient interface {
	ChatJSON(ctx context.Context, system, user string) (string, error)
}

// Adapter drives both summarization calls. Pure pass-through plus JSON
// decoding; no retry, a transient failure propagates to the caller.
type Adapter struct {
	client ChatClient
}

func NewAdapter(client ChatClient) *Adapter {
	return &Adapter{client: client}
}

// Summarize asks for the structured summary of the transcript.
func (a *Adapter) Summarize(ctx context.Context, transcript string) (models.Summary, error) {
	reply, err := a.client.ChatJSON(ctx, summaryPrompt, "Transcript:\n"+transcript)
	if err != nil {
		return models.Summary{}, fmt.Errorf("summarization failed: %w", err)
	}

	var summary models.Summary
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &summary); err != nil {
		return models.Summary{}, fmt.Errorf("parse summary reply: %w", err)
	}
	return summary, nil
}

// ExtractActionItems asks for the action-item array. An empty array is a
// valid result, not an error.
func (a *Adapter) ExtractActionItems(ctx context.Context, transcript string) ([]models.ActionItem, error) {
	reply, err := a.client.ChatJSON(ctx, extractionPrompt, "Transcript:\n"+transcript)
	if err != nil {
		return nil, fmt.Errorf("action item extraction failed: %w", err)
	}

	var items []models.ActionItem
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &items); err != nil {
		return nil, fmt.Errorf("parse action items reply: %w", err)
	}
	return items, nil
}

// stripCodeFence removes surrounding markdown code-fence markers that models
// sometimes wrap JSON in, despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}
