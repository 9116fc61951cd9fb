package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bie71/veo3-studio/models"
	"github.com/bie71/veo3-studio/utils"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is used when a request names no model at all.
const DefaultModel = "veo-3.0-fast-generate-001"

// modelAliases maps legacy short names to canonical provider model ids.
var modelAliases = map[string]string{
	"veo-3":        "veo-3.0-generate-001",
	"veo-3.0":      "veo-3.0-generate-001",
	"veo-3-fast":   "veo-3.0-fast-generate-001",
	"veo-3.0-fast": "veo-3.0-fast-generate-001",
	"veo-2":        "veo-2.0-generate-001",
	"veo-2.0":      "veo-2.0-generate-001",
}

// NormalizeModel maps an alias to its canonical id and defaults empty input.
// Unknown names pass through unchanged; used by the raw proxy surface.
func NormalizeModel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultModel
	}
	if canonical, ok := modelAliases[name]; ok {
		return canonical
	}
	return name
}

// ResolveModel is the strict variant used at batch entry: a name that is
// neither an alias nor a canonical id is rejected instead of being passed
// through to the remote API.
func ResolveModel(name string) (string, error) {
	resolved := NormalizeModel(name)
	for _, canonical := range modelAliases {
		if resolved == canonical {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: unknown model %q", models.ErrValidation, name)
}

// VeoClient talks to the Gemini generateContent API.
type VeoClient struct {
	httpClient    *http.Client
	baseURL       string
	keyPool       *utils.APIKeyPool
	keyRetryDelay time.Duration
}

// NewVeoClient creates a client. keyPool may be nil when every request is
// expected to carry its own key.
func NewVeoClient(keyPool *utils.APIKeyPool, timeout, keyRetryDelay time.Duration) *VeoClient {
	return &VeoClient{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       defaultBaseURL,
		keyPool:       keyPool,
		keyRetryDelay: keyRetryDelay,
	}
}

func (c *VeoClient) resolveKey(override string) (string, error) {
	if k := strings.TrimSpace(override); k != "" {
		return k, nil
	}
	if c.keyPool == nil {
		return "", fmt.Errorf("%w: no API key configured and none supplied", models.ErrValidation)
	}
	key, err := c.keyPool.Get()
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return key, nil
}

// GenerateContent POSTs a generation request. The caller owns the returned
// response body. Network failures surface as ErrTransport. A 404 JSON
// response is converted into ErrUpstream with a clearer model-access
// message; every other status is returned as-is so the proxy surface can
// stream it through verbatim.
func (c *VeoClient) GenerateContent(ctx context.Context, model string, body any, apiKeyOverride string) (*http.Response, error) {
	key, err := c.resolveKey(apiKeyOverride)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if apiKeyOverride == "" && c.keyPool != nil {
			c.keyPool.MarkFailed(key, c.keyRetryDelay)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusNotFound && strings.Contains(ct, "application/json") {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: model %q is not available for your API key or does not support generateContent in v1beta; "+
			"use /api/veo3/models to see accessible models or update your key (Veo access required): %s",
			models.ErrUpstream, model, strings.TrimSpace(string(detail)))
	}
	if resp.StatusCode == http.StatusTooManyRequests && apiKeyOverride == "" && c.keyPool != nil {
		c.keyPool.MarkFailed(key, c.keyRetryDelay)
	}

	return resp, nil
}

// ListModels fetches the upstream model listing accessible to the key.
func (c *VeoClient) ListModels(ctx context.Context, apiKeyOverride string) (json.RawMessage, error) {
	key, err := c.resolveKey(apiKeyOverride)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models?key=%s", c.baseURL, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading models listing: %v", models.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list models failed: %d %s", models.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// SetBaseURL overrides the upstream endpoint. Used by tests.
func (c *VeoClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}
