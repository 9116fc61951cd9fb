package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bie71/veo3-studio/config"
	"github.com/bie71/veo3-studio/models"
	"github.com/bie71/veo3-studio/services"
	"github.com/bie71/veo3-studio/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const geminiKeyHeader = "x-gemini-key"

// StoryboardHandler serves the storyboard API: single-shot generation,
// batched segments, concatenation, frame extraction and job bookkeeping.
type StoryboardHandler struct {
	cfg      *config.Config
	client   *services.VeoClient
	pipeline *services.Pipeline

	// In-memory job tracking
	jobs    map[string]*models.JobRecord
	jobsMux sync.RWMutex
}

// NewStoryboardHandler wires the handler over the real client, media
// resolver and pipeline.
func NewStoryboardHandler(cfg *config.Config) *StoryboardHandler {
	keyPool := utils.NewAPIKeyPool(cfg.GeminiAPIKeys)
	client := services.NewVeoClient(keyPool, cfg.RemoteCallTimeout, cfg.KeyRetryDelay)
	media := services.NewMediaResolver(cfg.MediaFetchTimeout)

	toolTimeout := func(parent context.Context) (context.Context, context.CancelFunc) {
		return context.WithTimeout(parent, cfg.FFmpegTimeout)
	}
	pipeline := services.NewPipeline(client, media, cfg.JobsDir, toolTimeout)

	return &StoryboardHandler{
		cfg:      cfg,
		client:   client,
		pipeline: pipeline,
		jobs:     make(map[string]*models.JobRecord),
	}
}

// proxyGenerateRequest is the simplified text shape accepted by the proxy
// endpoint; anything else is passed through to the remote API verbatim.
type proxyGenerateRequest struct {
	Prompt          string                  `json:"prompt"`
	StylePreset     string                  `json:"stylePreset"`
	StyleStrength   int                     `json:"styleStrength"`
	MatchPrevious   bool                    `json:"matchPrevious"`
	HoldThenMove    bool                    `json:"holdThenMove"`
	Cutaway         bool                    `json:"cutaway"`
	RemoveAudio     bool                    `json:"removeAudio"`
	AspectRatio     string                  `json:"aspectRatio"`
	Resolution      string                  `json:"resolution"`
	DurationSeconds float64                 `json:"durationSeconds"`
	NegativePrompt  string                  `json:"negativePrompt"`
	ReferenceImages []models.ReferenceImage `json:"referenceImages"`
}

// Generate handles POST /api/veo3/generate: one remote generation call,
// response streamed back verbatim.
func (h *StoryboardHandler) Generate(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "failed to read request body"})
		return
	}

	model := services.NormalizeModel(c.Query("model"))
	apiKey := c.GetHeader(geminiKeyHeader)

	var payload any = json.RawMessage(raw)
	var simplified proxyGenerateRequest
	if err := json.Unmarshal(raw, &simplified); err == nil && simplified.Prompt != "" {
		if simplified.AspectRatio == "" {
			simplified.AspectRatio = models.Aspect16x9
		}
		if simplified.Resolution == "" {
			simplified.Resolution = models.Resolution1080p
		}
		prompt := services.BuildCinematicPrompt(services.CinematicPromptOptions{
			StylePreset:     simplified.StylePreset,
			StyleStrength:   simplified.StyleStrength,
			MatchPrevious:   simplified.MatchPrevious,
			HoldThenMove:    simplified.HoldThenMove,
			Cutaway:         simplified.Cutaway,
			UserBrief:       simplified.Prompt,
			RemoveAudio:     simplified.RemoveAudio,
			AspectRatio:     simplified.AspectRatio,
			Resolution:      simplified.Resolution,
			DurationSeconds: models.ClampDuration(simplified.DurationSeconds),
			NegativePrompt:  simplified.NegativePrompt,
		})
		payload = services.BuildGenerateBody(prompt, simplified.ReferenceImages)
	}

	resp, err := h.client.GenerateContent(c.Request.Context(), model, payload, apiKey)
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}
	defer resp.Body.Close()

	c.Header("Content-Type", resp.Header.Get("Content-Type"))
	c.Header("Cache-Control", "no-store")
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		config.Log.WithField("error", err.Error()).Error("Failed to stream generation response")
	}
}

// Segments handles POST /api/veo3/segments: the storyboard batch pipeline.
func (h *StoryboardHandler) Segments(c *gin.Context) {
	var req models.StoryboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request: " + err.Error()})
		return
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = "job_" + uuid.NewString()
	}
	h.registerJob(jobID)

	results, err := h.pipeline.RunStoryboard(c.Request.Context(), jobID, c.GetHeader(geminiKeyHeader), &req)
	if err != nil {
		h.dropJob(jobID)
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": err.Error()})
		return
	}

	h.completeJob(jobID, results)
	c.JSON(http.StatusOK, models.StoryboardResponse{JobID: jobID, Results: results})
}

// Concat handles POST /api/veo3/concat: joins caller-selected clips into
// the job's single output file.
func (h *StoryboardHandler) Concat(c *gin.Context) {
	var req models.ConcatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request: " + err.Error()})
		return
	}
	if req.JobID == "" || len(req.Segments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "jobId and segments[] required"})
		return
	}

	if req.AspectRatio == "" {
		req.AspectRatio = models.Aspect16x9
	}
	if req.Resolution == "" {
		req.Resolution = models.Resolution1080p
	}
	if req.FPS == 0 {
		req.FPS = models.DefaultFPS
	}

	out := utils.OutputPath(h.cfg.JobsDir, req.JobID)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.FFmpegTimeout)
	defer cancel()

	if err := utils.ConcatVideos(ctx, req.Segments, out, req.AspectRatio, req.Resolution, req.FPS); err != nil {
		config.Log.WithFields(map[string]interface{}{"job_id": req.JobID, "error": err.Error()}).Error("Concat failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "url": fmt.Sprintf("/jobs/%s/output.mp4", req.JobID)})
}

// FrameExtract handles POST /api/veo3/frame-extract: standalone last-frame
// extraction for an arbitrary clip.
func (h *StoryboardHandler) FrameExtract(c *gin.Context) {
	var req models.FrameExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request: " + err.Error()})
		return
	}
	if req.VideoPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "videoPath required"})
		return
	}

	pngPath := req.VideoPath + ".last.png"
	if req.JobID != "" && req.SegID != nil {
		pngPath = utils.LastFramePath(h.cfg.JobsDir, req.JobID, *req.SegID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.FFmpegTimeout)
	defer cancel()
	if err := utils.ExtractLastFrame(ctx, req.VideoPath, pngPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": err.Error()})
		return
	}

	frame, err := os.ReadFile(pngPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "failed to read extracted frame: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"dataUrl": "data:image/png;base64," + base64.StdEncoding.EncodeToString(frame),
		"path":    pngPath,
	})
}

// Models handles GET /api/veo3/models: upstream model listing passthrough.
func (h *StoryboardHandler) Models(c *gin.Context) {
	listing, err := h.client.ListModels(c.Request.Context(), c.GetHeader(geminiKeyHeader))
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", listing)
}

// GetJob handles GET /api/veo3/jobs/:job_id.
func (h *StoryboardHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	h.jobsMux.RLock()
	job, exists := h.jobs[jobID]
	h.jobsMux.RUnlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob handles DELETE /api/veo3/jobs/:job_id. Removing a job directory
// is always an explicit caller action, never implicit.
func (h *StoryboardHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if err := utils.RemoveJobDir(h.cfg.JobsDir, jobID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": err.Error()})
		return
	}
	h.dropJob(jobID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *StoryboardHandler) writeGenerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
	case errors.Is(err, models.ErrUpstream):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": err.Error()})
	case errors.Is(err, models.ErrTransport):
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": err.Error()})
	}
}

func (h *StoryboardHandler) registerJob(jobID string) {
	now := time.Now()
	h.jobsMux.Lock()
	h.jobs[jobID] = &models.JobRecord{
		JobID:     jobID,
		Status:    models.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.jobsMux.Unlock()
}

func (h *StoryboardHandler) completeJob(jobID string, results []models.SegmentResult) {
	h.jobsMux.Lock()
	if job, exists := h.jobs[jobID]; exists {
		job.Status = models.JobStatusCompleted
		job.Results = results
		job.UpdatedAt = time.Now()
	}
	h.jobsMux.Unlock()
}

func (h *StoryboardHandler) dropJob(jobID string) {
	h.jobsMux.Lock()
	delete(h.jobs, jobID)
	h.jobsMux.Unlock()
}
