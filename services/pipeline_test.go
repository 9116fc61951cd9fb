package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bie71/veo3-studio/models"
	"github.com/bie71/veo3-studio/utils"
	"github.com/stretchr/testify/require"
)

// stubGenerator returns an inline video stream per call and can be told to
// fail specific calls. Payloads are captured for assertions.
type stubGenerator struct {
	failOn   map[int]error
	payloads []any
}

func (g *stubGenerator) GenerateContent(ctx context.Context, model string, body any, apiKey string) (*http.Response, error) {
	call := len(g.payloads)
	g.payloads = append(g.payloads, body)
	if err, ok := g.failOn[call]; ok {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"video/mp4"}},
		Body:       io.NopCloser(strings.NewReader("clip")),
	}, nil
}

// streamSaver persists the response body directly, like the non-JSON path
// of the real resolver.
type streamSaver struct{}

func (streamSaver) SaveResponseMedia(ctx context.Context, resp *http.Response, destPath string) error {
	return utils.StreamToFile(resp.Body, destPath)
}

// stubExtractFrame writes a deterministic marker derived from the clip name
// so tests can tell which segment a chained frame came from.
func stubExtractFrame(ctx context.Context, videoPath, framePath string) error {
	return os.WriteFile(framePath, []byte("frame-of:"+filepath.Base(videoPath)), 0644)
}

func newTestPipeline(t *testing.T, gen *stubGenerator) (*Pipeline, string) {
	t.Helper()
	jobsRoot := t.TempDir()
	p := NewPipeline(gen, streamSaver{}, jobsRoot, nil)
	p.extractFrame = stubExtractFrame
	return p, jobsRoot
}

func chainedFrameFor(segID int) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("frame-of:seg_%d.mp4", segID)))
}

func TestRunStoryboardOrderAndCardinality(t *testing.T) {
	gen := &stubGenerator{}
	p, jobsRoot := newTestPipeline(t, gen)

	req := &models.StoryboardRequest{
		Model:  "veo-3",
		Global: models.GlobalOptions{AspectRatio: "16:9", Resolution: "1080p"},
		Segments: []models.SegmentSpec{
			{ID: 7, DurationSeconds: 5, Prompt: "one"},
			{ID: 3, DurationSeconds: 5, Prompt: "two"},
			{ID: 9, DurationSeconds: 5, Prompt: "three"},
		},
	}

	results, err := p.RunStoryboard(context.Background(), "jobA", "key", req)
	require.NoError(t, err)
	require.Len(t, results, len(req.Segments))
	for i, seg := range req.Segments {
		require.Equal(t, seg.ID, results[i].ID, "result order must match input order")
		require.True(t, results[i].OK)
		require.Equal(t, fmt.Sprintf("/jobs/jobA/seg_%d.mp4", seg.ID), results[i].VideoURL)
		require.FileExists(t, filepath.Join(jobsRoot, "jobA", fmt.Sprintf("seg_%d.mp4", seg.ID)))
		require.FileExists(t, filepath.Join(jobsRoot, "jobA", fmt.Sprintf("seg_%d_last.png", seg.ID)))
	}
}

func TestRunStoryboardFailureIsolationAndContinuity(t *testing.T) {
	gen := &stubGenerator{failOn: map[int]error{
		1: fmt.Errorf("%w: connection reset", models.ErrTransport),
	}}
	p, _ := newTestPipeline(t, gen)

	req := &models.StoryboardRequest{
		Segments: []models.SegmentSpec{
			{ID: 1, DurationSeconds: 5, Prompt: "a", UsePrevLastFrame: true},
			{ID: 2, DurationSeconds: 5, Prompt: "b", UsePrevLastFrame: true},
			{ID: 3, DurationSeconds: 5, Prompt: "c", UsePrevLastFrame: true},
		},
	}

	results, err := p.RunStoryboard(context.Background(), "jobB", "key", req)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.True(t, results[0].OK)
	require.False(t, results[1].OK)
	require.Contains(t, results[1].Message, "transport failure")
	require.True(t, results[2].OK, "a failed segment must not abort the batch")

	// Segment 1 had no predecessor: text part only.
	first := gen.payloads[0].(models.GenerateContentRequest)
	require.Len(t, first.Contents[0].Parts, 1)

	// Segment 2 was offered segment 1's frame before it failed.
	second := gen.payloads[1].(models.GenerateContentRequest)
	require.Len(t, second.Contents[0].Parts, 2)
	require.Equal(t, chainedFrameFor(1), second.Contents[0].Parts[1].InlineData.Data)

	// Segment 3 still chains from segment 1, not the failed segment 2.
	third := gen.payloads[2].(models.GenerateContentRequest)
	require.Len(t, third.Contents[0].Parts, 2)
	require.Equal(t, chainedFrameFor(1), third.Contents[0].Parts[1].InlineData.Data)
}

func TestRunStoryboardChainDisabled(t *testing.T) {
	gen := &stubGenerator{}
	p, _ := newTestPipeline(t, gen)

	req := &models.StoryboardRequest{
		Segments: []models.SegmentSpec{
			{ID: 1, DurationSeconds: 5, Prompt: "a"},
			{ID: 2, DurationSeconds: 5, Prompt: "b", UsePrevLastFrame: false},
		},
	}

	_, err := p.RunStoryboard(context.Background(), "jobC", "key", req)
	require.NoError(t, err)

	second := gen.payloads[1].(models.GenerateContentRequest)
	require.Len(t, second.Contents[0].Parts, 1, "chained frame must not appear when usePrevLastFrame is false")
}

func TestRunStoryboardCallerImagesAfterChainedFrame(t *testing.T) {
	gen := &stubGenerator{}
	p, _ := newTestPipeline(t, gen)

	req := &models.StoryboardRequest{
		Segments: []models.SegmentSpec{
			{ID: 1, DurationSeconds: 5, Prompt: "a"},
			{ID: 2, DurationSeconds: 5, Prompt: "b", UsePrevLastFrame: true,
				ReferenceImages: []models.ReferenceImage{{MimeType: "image/jpeg", DataBase64: "QkJC"}}},
		},
	}

	_, err := p.RunStoryboard(context.Background(), "jobD", "key", req)
	require.NoError(t, err)

	parts := gen.payloads[1].(models.GenerateContentRequest).Contents[0].Parts
	require.Len(t, parts, 3)
	require.Equal(t, chainedFrameFor(1), parts[1].InlineData.Data, "chained frame is the primary reference")
	require.Equal(t, "QkJC", parts[2].InlineData.Data)
}

func TestRunStoryboardRawBodyPassthrough(t *testing.T) {
	gen := &stubGenerator{}
	p, _ := newTestPipeline(t, gen)

	raw := json.RawMessage(`{"contents":[{"role":"user","parts":[{"text":"verbatim"}]}]}`)
	req := &models.StoryboardRequest{
		Segments: []models.SegmentSpec{
			{ID: 1, RawBody: raw,
				ReferenceImages: []models.ReferenceImage{{MimeType: "image/png", DataBase64: "QUFB"}}},
		},
	}

	_, err := p.RunStoryboard(context.Background(), "jobE", "key", req)
	require.NoError(t, err)

	payload, ok := gen.payloads[0].(json.RawMessage)
	require.True(t, ok, "raw body must be sent as-is, not recomposed")
	require.Contains(t, string(payload), "verbatim")
	require.Contains(t, string(payload), "QUFB")
}

func TestRunStoryboardValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *models.StoryboardRequest
	}{
		{"empty segments", &models.StoryboardRequest{}},
		{"duplicate ids", &models.StoryboardRequest{Segments: []models.SegmentSpec{
			{ID: 1, Prompt: "a"}, {ID: 1, Prompt: "b"},
		}}},
		{"unknown model", &models.StoryboardRequest{Model: "gpt-video", Segments: []models.SegmentSpec{
			{ID: 1, Prompt: "a"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{}
			p, _ := newTestPipeline(t, gen)

			_, err := p.RunStoryboard(context.Background(), "jobF", "key", tt.req)
			require.ErrorIs(t, err, models.ErrValidation)
			require.Empty(t, gen.payloads, "no remote call before validation passes")
		})
	}
}

func TestRunStoryboardUpstreamErrorIsSegmentFailure(t *testing.T) {
	gen := &stubGenerator{failOn: map[int]error{
		0: fmt.Errorf("%w: quota exceeded", models.ErrUpstream),
	}}
	p, _ := newTestPipeline(t, gen)

	req := &models.StoryboardRequest{
		Segments: []models.SegmentSpec{{ID: 1, Prompt: "a"}},
	}

	results, err := p.RunStoryboard(context.Background(), "jobG", "key", req)
	require.NoError(t, err, "upstream failures stay at the segment level")
	require.False(t, results[0].OK)
	require.Contains(t, results[0].Message, "quota exceeded")
}
