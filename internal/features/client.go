package features

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.deepai.org/api"

// nsfwThreshold maps the remote nsfw score to a safe/unsafe label.
const nsfwThreshold = 0.5

// tagLimit caps the number of labels returned by the image tagger.
const tagLimit = 10

// Client is a stateless wrapper around the remote feature API. Each call maps
// a feature kind to its fixed endpoint and normalizes the response shape.
type Client struct {
	apiBase string
	apiKey  string
	client  *http.Client
}

// NewClient creates a feature client. The HTTP client carries no global
// timeout; each call sets a per-kind deadline on its context.
func NewClient(apiKey, apiBase string) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		apiBase: strings.TrimRight(apiBase, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// apiResponse covers every response shape the remote API produces:
// a string or object "output", an "output_url", or an "err" message.
type apiResponse struct {
	Output    json.RawMessage `json:"output"`
	OutputURL string          `json:"output_url"`
	Err       string          `json:"err"`
}

// Call performs one remote feature invocation and returns a normalized
// result. Payload validation happens before any network traffic. A 429 or
// 403 becomes *QuotaError; any other non-2xx or malformed body becomes
// *RemoteError; exceeding the per-kind deadline becomes ErrTimeout.
// No retry is performed at this layer.
func (c *Client) Call(ctx context.Context, kind Kind, payload Payload) (*Result, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown feature %q", kind)}
	}
	if kind.NeedsImage() {
		if len(payload.Image) == 0 {
			return nil, &ValidationError{Reason: "this feature needs an attached image"}
		}
	} else if strings.TrimSpace(payload.Text) == "" {
		return nil, &ValidationError{Reason: "this feature needs a text prompt"}
	}

	ctx, cancel := context.WithTimeout(ctx, kind.Timeout())
	defer cancel()

	req, err := c.buildRequest(ctx, kind, payload)
	if err != nil {
		return nil, fmt.Errorf("features: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("features: %s: %w", kind, ErrTimeout)
		}
		return nil, fmt.Errorf("features: %s: request failed: %w", kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("features: %s: read response: %w", kind, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, &QuotaError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Message: "malformed response body"}
	}
	if decoded.Err != "" {
		return nil, &RemoteError{Status: resp.StatusCode, Message: decoded.Err}
	}

	return normalize(kind, &decoded, resp.StatusCode)
}

// buildRequest produces the wire request for one call: url-encoded form for
// text features, multipart upload for image features. The api-key header is
// set on every request.
func (c *Client) buildRequest(ctx context.Context, kind Kind, payload Payload) (*http.Request, error) {
	endpoint := c.apiBase + "/" + string(kind)

	var body io.Reader
	var contentType string

	if kind.NeedsImage() {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "image.jpg")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(payload.Image); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		body = &buf
		contentType = mw.FormDataContentType()
	} else {
		form := url.Values{"text": {payload.Text}}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("api-key", c.apiKey)
	return req, nil
}

// normalize converts the duck-typed remote response into one Result per kind.
func normalize(kind Kind, resp *apiResponse, status int) (*Result, error) {
	switch kind {
	case KindTextToImage, KindToonify, KindBackgroundRem:
		if resp.OutputURL == "" {
			return nil, &RemoteError{Status: status, Message: "response missing output_url"}
		}
		return &Result{Kind: kind, ImageURL: resp.OutputURL}, nil

	case KindSummarize, KindTextGenerator:
		var text string
		if err := json.Unmarshal(resp.Output, &text); err != nil {
			return nil, &RemoteError{Status: status, Message: "response missing text output"}
		}
		if strings.TrimSpace(text) == "" {
			return nil, ErrNoResults
		}
		return &Result{Kind: kind, Text: text}, nil

	case KindNSFWDetector:
		var out struct {
			NSFWScore float64 `json:"nsfw_score"`
		}
		if err := json.Unmarshal(resp.Output, &out); err != nil {
			return nil, &RemoteError{Status: status, Message: "response missing nsfw_score"}
		}
		label := "safe"
		if out.NSFWScore >= nsfwThreshold {
			label = "unsafe"
		}
		return &Result{Kind: kind, Text: fmt.Sprintf("%s (score %.2f)", label, out.NSFWScore)}, nil

	case KindImageTagger:
		var out struct {
			Captions []string `json:"captions"`
		}
		if err := json.Unmarshal(resp.Output, &out); err != nil {
			return nil, &RemoteError{Status: status, Message: "response missing captions"}
		}
		if len(out.Captions) == 0 {
			return nil, ErrNoResults
		}
		if len(out.Captions) > tagLimit {
			out.Captions = out.Captions[:tagLimit]
		}
		return &Result{Kind: kind, Text: strings.Join(out.Captions, ", ")}, nil
	}

	return nil, &ValidationError{Reason: fmt.Sprintf("unknown feature %q", kind)}
}

// Ping performs a cheap authenticated request to verify connectivity and the
// API key. Used by the doctor command; not part of the dispatch path.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.Call(ctx, KindTextGenerator, Payload{Text: "ping"})
	var invalid *ValidationError
	if errors.As(err, &invalid) {
		return err
	}
	var quota *QuotaError
	if errors.As(err, &quota) {
		// Quota exhaustion still proves the key reaches the API.
		return nil
	}
	return err
}
