package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/bie71/veo3-studio/config"
	"github.com/bie71/veo3-studio/models"
	"github.com/bie71/veo3-studio/utils"
	"github.com/sirupsen/logrus"
)

// generator is the remote generation call the pipeline depends on.
type generator interface {
	GenerateContent(ctx context.Context, model string, body any, apiKey string) (*http.Response, error)
}

// mediaSaver resolves and persists the media carried by a provider response.
type mediaSaver interface {
	SaveResponseMedia(ctx context.Context, resp *http.Response, destPath string) error
}

// frameExtractor produces a single still image from a finished clip.
type frameExtractor func(ctx context.Context, videoPath, framePath string) error

// Pipeline runs storyboard batches: one remote generation per segment,
// strictly in order, carrying the previous successful segment's last frame
// forward as a continuity reference.
type Pipeline struct {
	gen          generator
	media        mediaSaver
	extractFrame frameExtractor
	jobsRoot     string
	newToolCtx   func(parent context.Context) (context.Context, context.CancelFunc)
}

// NewPipeline wires a pipeline over the real Veo client, media resolver and
// ffmpeg frame extractor. toolTimeout bounds each ffmpeg invocation.
func NewPipeline(gen generator, media mediaSaver, jobsRoot string, toolTimeout func(parent context.Context) (context.Context, context.CancelFunc)) *Pipeline {
	if toolTimeout == nil {
		toolTimeout = func(parent context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(parent)
		}
	}
	return &Pipeline{
		gen:          gen,
		media:        media,
		extractFrame: utils.ExtractLastFrame,
		jobsRoot:     jobsRoot,
		newToolCtx:   toolTimeout,
	}
}

// pipelineState is the continuity state threaded through segment steps.
// chainedFrame holds the last frame of the most recent successful segment,
// inline-encoded and ready to be embedded as a reference image. It starts
// empty each run and is only replaced on success; a failed segment leaves it
// untouched so later segments keep their visual anchor.
type pipelineState struct {
	chainedFrame *models.ReferenceImage
}

// ValidateStoryboard rejects batches the pipeline must not start: an empty
// segment list or duplicate segment ids (which would collide on persisted
// filenames).
func ValidateStoryboard(req *models.StoryboardRequest) error {
	if len(req.Segments) == 0 {
		return fmt.Errorf("%w: segments[] must not be empty", models.ErrValidation)
	}
	seen := make(map[int]struct{}, len(req.Segments))
	for _, seg := range req.Segments {
		if _, dup := seen[seg.ID]; dup {
			return fmt.Errorf("%w: duplicate segment id %d", models.ErrValidation, seg.ID)
		}
		seen[seg.ID] = struct{}{}
	}
	return nil
}

// RunStoryboard processes every segment of the batch in input order and
// returns one result per segment, in that order. Per-segment failures are
// recorded, never propagated; the only error return is batch-entry
// validation (ErrValidation).
func (p *Pipeline) RunStoryboard(ctx context.Context, jobID string, apiKey string, req *models.StoryboardRequest) ([]models.SegmentResult, error) {
	if err := ValidateStoryboard(req); err != nil {
		return nil, err
	}
	model, err := ResolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	if _, err := utils.EnsureJobDir(p.jobsRoot, jobID); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	results := make([]models.SegmentResult, 0, len(req.Segments))
	state := pipelineState{}
	for _, seg := range req.Segments {
		var res models.SegmentResult
		state, res = p.runSegment(ctx, jobID, model, apiKey, req.Global, state, seg)
		results = append(results, res)
	}
	return results, nil
}

// runSegment is one step of the batch: (priorState, segment) -> (newState,
// result). All failures are converted into a failed result here.
func (p *Pipeline) runSegment(ctx context.Context, jobID, model, apiKey string, global models.GlobalOptions, state pipelineState, seg models.SegmentSpec) (pipelineState, models.SegmentResult) {
	log := config.Log.WithFields(logrus.Fields{"job_id": jobID, "segment_id": seg.ID})

	fail := func(err error) (pipelineState, models.SegmentResult) {
		log.WithField("error", err.Error()).Warn("Segment failed")
		return state, models.SegmentResult{ID: seg.ID, OK: false, Message: err.Error()}
	}

	payload, err := p.buildSegmentPayload(global, state, seg)
	if err != nil {
		return fail(err)
	}

	resp, err := p.gen.GenerateContent(ctx, model, payload, apiKey)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Errorf("%w: generation returned status %d", models.ErrUpstream, resp.StatusCode))
	}

	videoPath := utils.SegmentPath(p.jobsRoot, jobID, seg.ID)
	if err := p.media.SaveResponseMedia(ctx, resp, videoPath); err != nil {
		return fail(err)
	}

	framePath := utils.LastFramePath(p.jobsRoot, jobID, seg.ID)
	toolCtx, cancel := p.newToolCtx(ctx)
	err = p.extractFrame(toolCtx, videoPath, framePath)
	cancel()
	if err != nil {
		return fail(err)
	}

	frameBytes, err := os.ReadFile(framePath)
	if err != nil {
		return fail(fmt.Errorf("%w: reading extracted frame: %v", models.ErrExtraction, err))
	}

	log.Info("Segment completed")
	newState := pipelineState{chainedFrame: &models.ReferenceImage{
		MimeType:   "image/png",
		DataBase64: base64.StdEncoding.EncodeToString(frameBytes),
	}}
	return newState, models.SegmentResult{
		ID:           seg.ID,
		OK:           true,
		VideoURL:     fmt.Sprintf("/jobs/%s/seg_%d.mp4", jobID, seg.ID),
		LastFrameURL: fmt.Sprintf("/jobs/%s/seg_%d_last.png", jobID, seg.ID),
	}
}

// buildSegmentPayload decides the effective request body for one segment: a
// raw passthrough body with references injected, or a composed prompt with
// the chained frame (when requested and available) weighted first.
func (p *Pipeline) buildSegmentPayload(global models.GlobalOptions, state pipelineState, seg models.SegmentSpec) (any, error) {
	if len(seg.RawBody) > 0 {
		return AppendReferenceParts(seg.RawBody, seg.ReferenceImages)
	}

	refs := make([]models.ReferenceImage, 0, 1+len(seg.ReferenceImages))
	if seg.UsePrevLastFrame && state.chainedFrame != nil {
		refs = append(refs, *state.chainedFrame)
	}
	refs = append(refs, seg.ReferenceImages...)

	prompt := BuildCinematicPrompt(CinematicPromptOptions{
		StylePreset:     global.StylePreset,
		StyleStrength:   global.StyleStrength,
		MatchPrevious:   seg.UsePrevLastFrame,
		HoldThenMove:    true,
		Cutaway:         true,
		UserBrief:       seg.Prompt,
		RemoveAudio:     global.RemoveAudio,
		AspectRatio:     global.AspectRatio,
		Resolution:      global.Resolution,
		DurationSeconds: models.ClampDuration(seg.DurationSeconds),
		NegativePrompt:  global.NegativePrompt,
	})
	return BuildGenerateBody(prompt, refs), nil
}
