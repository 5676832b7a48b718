package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiSlipParser is the concrete AIParser backed by Gemini. It loads the
// configured card brands so the model returns brand names the resolver knows.
type GeminiSlipParser struct {
	groups GroupLister
	model  string
}

// NewGeminiSlipParser creates a Gemini-backed slip parser.
func NewGeminiSlipParser(groups GroupLister, model string) *GeminiSlipParser {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiSlipParser{groups: groups, model: model}
}

// ParseSlip sends the slip bytes to Gemini and returns the extracted items.
// It expects the model to return a STRICT JSON array of slip objects.
func (p *GeminiSlipParser) ParseSlip(ctx context.Context, data []byte, mimeType string) ([]SlipItem, error) {
	groupRows, err := p.groups.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("ParseSlip: loading groups: %w", err)
	}
	prompt := buildSlipPrompt(buildBrandList(groupRows), mimeType, time.Now())

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("ParseSlip: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("ParseSlip: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("ParseSlip: empty response from model")
	}

	return decodeSlipItems(rawText)
}

// decodeSlipItems extracts the JSON payload from the model response and
// unmarshals it. A single object is accepted and wrapped in a one-item slice.
func decodeSlipItems(rawText string) ([]SlipItem, error) {
	clean, err := extractModelJSON(rawText)
	if err != nil {
		return nil, fmt.Errorf("decodeSlipItems: %w\nraw response: %s", err, rawText)
	}

	if strings.HasPrefix(clean, "[") {
		var items []SlipItem
		if err := json.Unmarshal([]byte(clean), &items); err != nil {
			return nil, fmt.Errorf("decodeSlipItems: unmarshal array: %w\nraw response: %s", err, rawText)
		}
		return items, nil
	}

	var item SlipItem
	if err := json.Unmarshal([]byte(clean), &item); err != nil {
		return nil, fmt.Errorf("decodeSlipItems: unmarshal object: %w\nraw response: %s", err, rawText)
	}
	return []SlipItem{item}, nil
}

// extractModelJSON strips Markdown fences and isolates the first complete
// JSON array or object by bracket counting, in case the model wrapped the
// payload in prose despite instructions.
func extractModelJSON(raw string) (string, error) {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	arrayStart := strings.Index(s, "[")
	objectStart := strings.Index(s, "{")

	var start int
	var openCh, closeCh byte
	switch {
	case arrayStart != -1 && (objectStart == -1 || arrayStart < objectStart):
		start, openCh, closeCh = arrayStart, '[', ']'
	case objectStart != -1:
		start, openCh, closeCh = objectStart, '{', '}'
	default:
		return "", fmt.Errorf("JSON not found in response")
	}

	nest := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case openCh:
			nest++
		case closeCh:
			nest--
		}
		if nest == 0 {
			return s[start : i+1], nil
		}
	}
	return "", fmt.Errorf("invalid JSON structure")
}
