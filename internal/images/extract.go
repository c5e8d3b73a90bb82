// Package images extracts generated inline images from raw provider
// payloads into canonical image descriptors.
package images

import (
	"github.com/llmrelay/llmrelay/internal/models"
	"github.com/llmrelay/llmrelay/internal/types"
)

// Extractor pulls image descriptors out of a raw provider event.
type Extractor interface {
	Extract(payload map[string]any, providerID string) []types.ImageData
}

// Inline extracts base64 inline image data. Only Google AI Studio events
// carry inline images today; other providers yield nil.
type Inline struct{}

// Extract returns the images found in payload as data-URL descriptors.
func (Inline) Extract(payload map[string]any, providerID string) []types.ImageData {
	if models.FamilyFor(providerID) != models.FamilyGoogle {
		return nil
	}
	return googleInlineImages(payload)
}

func googleInlineImages(payload map[string]any) []types.ImageData {
	candidates, _ := payload["candidates"].([]any)
	if len(candidates) == 0 {
		return nil
	}
	candidate, _ := candidates[0].(map[string]any)
	content, _ := candidate["content"].(map[string]any)
	parts, _ := content["parts"].([]any)

	var out []types.ImageData
	for _, raw := range parts {
		part, _ := raw.(map[string]any)
		inline, _ := part["inlineData"].(map[string]any)
		if inline == nil {
			continue
		}
		data, _ := inline["data"].(string)
		if data == "" {
			continue
		}
		mime, _ := inline["mimeType"].(string)
		if mime == "" {
			mime = "image/png"
		}
		out = append(out, types.ImageData{
			Type:     "image_url",
			ImageURL: types.ImageURL{URL: "data:" + mime + ";base64," + data},
		})
	}
	return out
}
