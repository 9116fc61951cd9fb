package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bie71/veo3-studio/models"
	"github.com/bie71/veo3-studio/utils"
)

// mediaEnvelope models the known shapes a generation success response may
// take when it points at media instead of inlining it.
type mediaEnvelope struct {
	VideoURL   string `json:"videoUrl"`
	URL        string `json:"url"`
	ResultURL  string `json:"resultUrl"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				FileData *struct {
					FileURI string `json:"fileUri"`
				} `json:"fileData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// locatorStrategies are tried in priority order; the first non-empty
// locator wins.
var locatorStrategies = []struct {
	name    string
	extract func(*mediaEnvelope) string
}{
	{"videoUrl", func(e *mediaEnvelope) string { return e.VideoURL }},
	{"url", func(e *mediaEnvelope) string { return e.URL }},
	{"resultUrl", func(e *mediaEnvelope) string { return e.ResultURL }},
	{"candidateFileUri", func(e *mediaEnvelope) string {
		for _, cand := range e.Candidates {
			for _, part := range cand.Content.Parts {
				if part.FileData != nil && part.FileData.FileURI != "" {
					return part.FileData.FileURI
				}
			}
		}
		return ""
	}},
}

// FindMediaLocator searches a JSON response body for a media URL.
func FindMediaLocator(body []byte) (string, error) {
	var env mediaEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%w: response is not valid JSON: %v", models.ErrNoMediaURL, err)
	}
	for _, s := range locatorStrategies {
		if loc := s.extract(&env); loc != "" {
			return loc, nil
		}
	}
	return "", models.ErrNoMediaURL
}

// MediaResolver turns a provider response into persisted media bytes.
type MediaResolver struct {
	httpClient *http.Client
}

func NewMediaResolver(fetchTimeout time.Duration) *MediaResolver {
	return &MediaResolver{
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

// SaveResponseMedia resolves the media carried by resp and streams it to
// destPath. JSON responses are searched for a locator which is then fetched
// separately; any other content type is treated as the media stream itself.
// Nothing is written to destPath until bytes are actually flowing.
func (m *MediaResolver) SaveResponseMedia(ctx context.Context, resp *http.Response, destPath string) error {
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		return utils.StreamToFile(resp.Body, destPath)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", models.ErrTransport, err)
	}

	locator, err := FindMediaLocator(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrMediaFetchFailed, err)
	}
	media, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrMediaFetchFailed, err)
	}
	defer media.Body.Close()

	if media.StatusCode < 200 || media.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d from %s", models.ErrMediaFetchFailed, media.StatusCode, locator)
	}

	return utils.StreamToFile(media.Body, destPath)
}
