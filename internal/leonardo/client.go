// Package leonardo provides a client for the Leonardo generative-media
// REST API: image generation, upscale/unzoom variations, and motion jobs.
//
// Jobs are asynchronous: a submission returns a JobHandle, and the Poller
// waits for the handle's terminal status with a fixed interval and a
// wall-clock timeout. Every failure surfaces as a typed *Error so callers
// can discriminate auth problems from timeouts from failed jobs.
package leonardo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// defaultBaseURL is the Leonardo REST API base URL.
	defaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"

	// defaultTimeout is the HTTP client timeout for single API calls.
	defaultTimeout = 30 * time.Second
)

// Client provides methods for submitting and inspecting Leonardo jobs.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithBaseURL overrides the API base URL (no trailing slash).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Leonardo API client.
// An empty API key is rejected immediately with an auth-kind error.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &Error{Kind: KindAuth, Message: "API key must be provided"}
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// --- Submission response types ---

type generationJobResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type upscaleJobResponse struct {
	SDUpscaleJob struct {
		ID string `json:"id"`
	} `json:"sdUpscaleJob"`
}

type unzoomJobResponse struct {
	SDUnzoomJob struct {
		ID string `json:"id"`
	} `json:"sdUnzoomJob"`
}

type motionJobResponse struct {
	MotionSVDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"motionSvdGenerationJob"`
}

// --- Job submission ---

// CreateGeneration submits an image generation job.
// The spec must come from RequestBuilder.Build so it is fully resolved.
func (c *Client) CreateGeneration(ctx context.Context, spec RequestSpec) (JobHandle, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "generations", spec)
	if err != nil {
		return JobHandle{}, err
	}

	var resp generationJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return JobHandle{}, submissionErrorf("parse generation response: %v", err)
	}
	if resp.SDGenerationJob.GenerationID == "" {
		return JobHandle{}, submissionErrorf("no id in response")
	}

	handle := JobHandle{ID: resp.SDGenerationJob.GenerationID, Kind: JobGeneration}
	log.Info().Str("generationId", handle.ID).Msg("Generation started")
	return handle, nil
}

// CreateUpscale submits a Universal Upscaler job for a generated image.
func (c *Client) CreateUpscale(ctx context.Context, generatedImageID string) (JobHandle, error) {
	if generatedImageID == "" {
		return JobHandle{}, validationErrorf("image id must be provided")
	}

	payload := map[string]any{"id": generatedImageID}
	body, err := c.doRequest(ctx, http.MethodPost, "variations/upscale", payload)
	if err != nil {
		return JobHandle{}, err
	}

	var resp upscaleJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return JobHandle{}, submissionErrorf("parse upscale response: %v", err)
	}
	if resp.SDUpscaleJob.ID == "" {
		return JobHandle{}, submissionErrorf("no id in response")
	}

	handle := JobHandle{ID: resp.SDUpscaleJob.ID, Kind: JobUpscale}
	log.Info().Str("upscaleId", handle.ID).Str("imageId", generatedImageID).Msg("Upscale started")
	return handle, nil
}

// CreateUnzoom submits an unzoom (outpaint) job for a generated image.
// isVariation marks the source image as itself being a variation output.
func (c *Client) CreateUnzoom(ctx context.Context, generatedImageID string, isVariation bool) (JobHandle, error) {
	if generatedImageID == "" {
		return JobHandle{}, validationErrorf("image id must be provided")
	}

	payload := map[string]any{
		"id":          generatedImageID,
		"isVariation": isVariation,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "variations/unzoom", payload)
	if err != nil {
		return JobHandle{}, err
	}

	var resp unzoomJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return JobHandle{}, submissionErrorf("parse unzoom response: %v", err)
	}
	if resp.SDUnzoomJob.ID == "" {
		return JobHandle{}, submissionErrorf("no id in response")
	}

	handle := JobHandle{ID: resp.SDUnzoomJob.ID, Kind: JobUnzoom}
	log.Info().Str("unzoomId", handle.ID).Str("imageId", generatedImageID).Msg("Unzoom started")
	return handle, nil
}

// MotionOptions configures a motion (SVD) generation.
type MotionOptions struct {
	IsPublic    bool
	IsInitImage bool
	IsVariation bool
	// MotionStrength is 1-10; nil lets the service pick its default.
	MotionStrength *int
}

// CreateMotion submits a motion generation job for an image.
func (c *Client) CreateMotion(ctx context.Context, imageID string, opts MotionOptions) (JobHandle, error) {
	if imageID == "" {
		return JobHandle{}, validationErrorf("image id must be provided")
	}

	payload := map[string]any{
		"imageId":        imageID,
		"isPublic":       opts.IsPublic,
		"isInitImage":    opts.IsInitImage,
		"isVariation":    opts.IsVariation,
		"motionStrength": opts.MotionStrength,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "generations-motion-svd", payload)
	if err != nil {
		return JobHandle{}, err
	}

	var resp motionJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return JobHandle{}, submissionErrorf("parse motion response: %v", err)
	}
	if resp.MotionSVDGenerationJob.GenerationID == "" {
		return JobHandle{}, submissionErrorf("no id in response")
	}

	handle := JobHandle{ID: resp.MotionSVDGenerationJob.GenerationID, Kind: JobMotion}
	log.Info().Str("motionId", handle.ID).Str("imageId", imageID).Msg("Motion generation started")
	return handle, nil
}

// --- Generation lookup ---

// Generation returns the full generation record, whatever its image list
// contains. Use this when a visible-but-still-empty record is meaningful;
// GenerationImages is the strict sibling that treats emptiness as an error.
func (c *Client) Generation(ctx context.Context, generationID string) (map[string]any, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "generations/"+generationID, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		GenerationsByPK map[string]any `json:"generations_by_pk"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, shapeErrorf("parse generation response: %v", err)
	}
	if resp.GenerationsByPK == nil {
		return nil, shapeErrorf("generation %s not found in the response", generationID)
	}
	return resp.GenerationsByPK, nil
}

// GenerationImages returns the generated images of a generation.
// A record with no images fails with a shape-kind error; the record being
// absent entirely reports the same way, matching the service's behavior of
// returning null for unknown ids.
func (c *Client) GenerationImages(ctx context.Context, generationID string) ([]Artifact, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "generations/"+generationID, nil)
	if err != nil {
		return nil, err
	}

	artifacts, err := generationShape{}.extractArtifacts(body)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, shapeErrorf("generation %s has no images in the response", generationID)
	}
	return artifacts, nil
}

// ListImageIDs returns just the image ids of a completed generation.
func (c *Client) ListImageIDs(ctx context.Context, generationID string) ([]string, error) {
	artifacts, err := c.GenerationImages(ctx, generationID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(artifacts))
	for i, a := range artifacts {
		ids[i] = a.ID
	}
	return ids, nil
}

// jobStatusPayload fetches the raw status payload for a job handle from
// its kind-specific endpoint. The poller interprets the bytes through the
// kind's shape adapter.
func (c *Client) jobStatusPayload(ctx context.Context, handle JobHandle) ([]byte, error) {
	endpoint := adapterFor(handle.Kind).statusPath() + "/" + handle.ID
	return c.doRequest(ctx, http.MethodGet, endpoint, nil)
}

// --- Account and platform endpoints ---

// Model describes one platform model.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GetModels lists the platform's available models.
func (c *Client) GetModels(ctx context.Context) ([]Model, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "platformModels", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Models []Model `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, shapeErrorf("parse models response: %v", err)
	}
	if resp.Models == nil {
		return nil, shapeErrorf("unexpected response structure: missing models")
	}
	return resp.Models, nil
}

// ImprovePrompt asks the service to rewrite a prompt.
func (c *Client) ImprovePrompt(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", validationErrorf("prompt must be provided")
	}

	payload := map[string]any{"prompt": prompt}
	body, err := c.doRequest(ctx, http.MethodPost, "prompt/improve", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		PromptGeneration struct {
			Prompt string `json:"prompt"`
		} `json:"promptGeneration"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", shapeErrorf("parse improve-prompt response: %v", err)
	}
	if resp.PromptGeneration.Prompt == "" {
		return "", shapeErrorf("improve-prompt response missing promptGeneration")
	}
	return resp.PromptGeneration.Prompt, nil
}

// UserInfo is the authenticated user's identity and token balances.
type UserInfo struct {
	UserID             string
	Username           string
	SubscriptionTokens int
}

// Me returns information about the authenticated user.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "me", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		UserDetails []struct {
			User struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"user"`
			SubscriptionTokens int `json:"subscriptionTokens"`
		} `json:"user_details"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, shapeErrorf("parse user response: %v", err)
	}
	if len(resp.UserDetails) == 0 || resp.UserDetails[0].User.ID == "" {
		return nil, shapeErrorf("user response missing user_details")
	}

	d := resp.UserDetails[0]
	return &UserInfo{
		UserID:             d.User.ID,
		Username:           d.User.Username,
		SubscriptionTokens: d.SubscriptionTokens,
	}, nil
}

// GenerationSummary is one entry of a user's generation listing.
type GenerationSummary struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Prompt string `json:"prompt"`
}

// ListGenerations pages through a user's generations.
func (c *Client) ListGenerations(ctx context.Context, userID string, offset, limit int) ([]GenerationSummary, error) {
	if userID == "" {
		return nil, validationErrorf("user id must be provided")
	}

	endpoint := fmt.Sprintf("generations/user/%s?offset=%d&limit=%d", userID, offset, limit)
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Generations []GenerationSummary `json:"generations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, shapeErrorf("parse generations listing: %v", err)
	}
	return resp.Generations, nil
}

// DeleteGeneration deletes a generation and all its images.
// Deletion is idempotent from the caller's perspective: a 404 means the
// generation is already gone and counts as success.
func (c *Client) DeleteGeneration(ctx context.Context, generationID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "generations/"+generationID, nil)
	if IsKind(err, KindNotFound) {
		log.Debug().Str("generationId", generationID).Msg("Generation already deleted")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("generationId", generationID).Msg("Generation deleted")
	return nil
}

// --- Internal helpers ---

// doRequest sends one JSON request to the API and returns the raw response
// body of a 2xx, or the classified error for anything else.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	startTime := time.Now()
	log.Debug().Str("method", method).Str("endpoint", endpoint).Str("requestId", requestID).Msg("Leonardo API request")

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Leonardo API response")
		return nil, &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Str("requestId", requestID).Msg("Leonardo API response")

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "read response", Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, classifyStatus(httpResp.StatusCode, endpoint, string(body))
	}
	return body, nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
