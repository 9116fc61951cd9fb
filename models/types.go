package models

import (
	"encoding/json"
	"time"
)

// Supported output geometries. The concatenator only knows these four
// aspect/resolution combinations.
const (
	Aspect16x9 = "16:9"
	Aspect9x16 = "9:16"

	Resolution720p  = "720p"
	Resolution1080p = "1080p"
)

const (
	// Veo accepts clip durations in this range; anything outside is clamped.
	MinSegmentDuration = 3
	MaxSegmentDuration = 60

	DefaultFPS = 30
)

// ClampDuration forces a requested segment duration into the supported range.
// Zero or negative input falls back to a short default clip.
func ClampDuration(seconds float64) float64 {
	if seconds <= 0 {
		return 5
	}
	if seconds < MinSegmentDuration {
		return MinSegmentDuration
	}
	if seconds > MaxSegmentDuration {
		return MaxSegmentDuration
	}
	return seconds
}

// ReferenceImage is an inline image attached to a generation request.
// DataBase64 may carry a data-URL prefix; it is stripped before sending.
type ReferenceImage struct {
	MimeType   string `json:"mimeType"`
	DataBase64 string `json:"dataBase64"`
}

// SegmentSpec is one requested clip in a storyboard batch.
// RawBody, when present, is sent verbatim (plus injected reference images)
// instead of composing a prompt from Prompt.
type SegmentSpec struct {
	ID               int              `json:"id"`
	DurationSeconds  float64          `json:"durationSeconds"`
	Prompt           string           `json:"prompt,omitempty"`
	RawBody          json.RawMessage  `json:"rawBody,omitempty"`
	UsePrevLastFrame bool             `json:"usePrevLastFrame,omitempty"`
	ReferenceImages  []ReferenceImage `json:"referenceImages,omitempty"`
}

// GlobalOptions are batch-wide generation parameters.
type GlobalOptions struct {
	AspectRatio    string `json:"aspectRatio"`
	Resolution     string `json:"resolution"`
	RemoveAudio    bool   `json:"removeAudio"`
	FPS            int    `json:"fps,omitempty"`
	StylePreset    string `json:"stylePreset,omitempty"`
	StyleStrength  int    `json:"styleStrength,omitempty"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
}

// StoryboardRequest is the batch input for POST /api/veo3/segments.
type StoryboardRequest struct {
	Model    string        `json:"model,omitempty"`
	JobID    string        `json:"jobId,omitempty"`
	Global   GlobalOptions `json:"global"`
	Segments []SegmentSpec `json:"segments"`
}

// SegmentResult is the per-segment outcome. URLs point into the static
// /jobs tree and are only set on success.
type SegmentResult struct {
	ID           int    `json:"id"`
	OK           bool   `json:"ok"`
	Message      string `json:"message,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`
	LastFrameURL string `json:"lastFrameUrl,omitempty"`
}

// StoryboardResponse echoes one result per requested segment, in input order.
type StoryboardResponse struct {
	JobID   string          `json:"jobId"`
	Results []SegmentResult `json:"results"`
}

// ConcatRequest asks for the caller-selected clips of a job to be joined.
type ConcatRequest struct {
	JobID       string   `json:"jobId"`
	AspectRatio string   `json:"aspectRatio,omitempty"`
	Resolution  string   `json:"resolution,omitempty"`
	FPS         int      `json:"fps,omitempty"`
	Segments    []string `json:"segments"`
}

// FrameExtractRequest asks for a standalone last-frame extraction.
type FrameExtractRequest struct {
	VideoPath string `json:"videoPath"`
	JobID     string `json:"jobId,omitempty"`
	SegID     *int   `json:"segId,omitempty"`
}

// Job statuses tracked by the in-memory registry.
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
)

// JobRecord tracks one storyboard run in memory.
type JobRecord struct {
	JobID     string          `json:"jobId"`
	Status    string          `json:"status"`
	Results   []SegmentResult `json:"results,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Gemini generateContent wire types. Only the fields this service reads or
// writes are modeled.

type GenerateContentRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
	FileData   *FileData   `json:"fileData,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type FileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type GenerationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"topP,omitempty"`
	TopK        int     `json:"topK,omitempty"`
}
