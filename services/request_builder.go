package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bie71/veo3-studio/models"
)

// NormalizeBase64 strips a data-URL prefix ("data:image/png;base64,...")
// from an image payload, leaving raw base64. Payloads without a prefix pass
// through unchanged.
func NormalizeBase64(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

// BuildGenerateBody assembles a generateContent request: one user turn whose
// parts are the instruction text followed by the reference images in order,
// plus fixed sampling hints. Pure.
func BuildGenerateBody(prompt string, refs []models.ReferenceImage) models.GenerateContentRequest {
	parts := make([]models.Part, 0, 1+len(refs))
	parts = append(parts, models.Part{Text: prompt})
	for _, img := range refs {
		parts = append(parts, models.Part{
			InlineData: &models.InlineData{
				MimeType: img.MimeType,
				Data:     NormalizeBase64(img.DataBase64),
			},
		})
	}

	return models.GenerateContentRequest{
		Contents: []models.Content{{Role: "user", Parts: parts}},
		GenerationConfig: &models.GenerationConfig{
			Temperature: 0.4,
			TopP:        0.9,
			TopK:        32,
		},
	}
}

// AppendReferenceParts injects reference images into a caller-supplied raw
// generateContent body. The body is only modified when it already has a
// contents[0].parts array; otherwise it is returned untouched.
func AppendReferenceParts(raw json.RawMessage, refs []models.ReferenceImage) (json.RawMessage, error) {
	if len(refs) == 0 {
		return raw, nil
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("invalid raw request body: %w", err)
	}

	contents, ok := body["contents"].([]any)
	if !ok || len(contents) == 0 {
		return raw, nil
	}
	first, ok := contents[0].(map[string]any)
	if !ok {
		return raw, nil
	}
	parts, ok := first["parts"].([]any)
	if !ok {
		return raw, nil
	}

	for _, img := range refs {
		parts = append(parts, map[string]any{
			"inlineData": map[string]any{
				"mimeType": img.MimeType,
				"data":     NormalizeBase64(img.DataBase64),
			},
		})
	}
	first["parts"] = parts

	out, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode raw request body: %w", err)
	}
	return out, nil
}
