package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roomworks/server/internal/infra"
)

const healthTimeout = 5 * time.Second

// Options configures the ComfyUI client.
type Options struct {
	BaseURL    string
	ClientID   string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client speaks the ComfyUI HTTP surface: image intake, queueing, history
// and output retrieval. It is stateless; every call is independently
// retryable by the caller, the client itself never retries.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8188"
	}
	clientID := strings.TrimSpace(opts.ClientID)
	if clientID == "" {
		clientID = "roomworks"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadImage pushes image bytes to the backend's intake endpoint and
// returns the backend-assigned filename. The returned name is authoritative
// and must be used in graph references; it may differ from filename.
func (c *Client) UploadImage(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &UploadError{Err: err}
	}
	if err := writer.WriteField("overwrite", "true"); err != nil {
		return "", &UploadError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/image", &body)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &UploadError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var decoded struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &UploadError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if decoded.Name == "" {
		return "", &UploadError{Err: fmt.Errorf("backend returned empty filename")}
	}
	c.logger.Debug().Str("filename", decoded.Name).Msg("comfy: uploaded image")
	return decoded.Name, nil
}

// DownloadImage retrieves a generated output by its backend filename.
func (c *Client) DownloadImage(ctx context.Context, filename string) ([]byte, error) {
	endpoint := c.baseURL + "/view?" + url.Values{
		"filename": {filename},
		"type":     {"output"},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &DownloadError{Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &DownloadError{Err: fmt.Errorf("status %d for %q", resp.StatusCode, filename)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// Health is a lightweight liveness probe. It reports false on any failure
// instead of returning an error; callers use it for pre-flight checks only.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system_stats", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// SupportsNode probes the backend's node catalog for a class type.
func (c *Client) SupportsNode(ctx context.Context, class string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/object_info/"+url.PathEscape(class), nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "{}" && trimmed != "null"
}

// QueuePrompt posts a workflow graph to the backend queue and returns the
// opaque prompt identifier used for history polling.
func (c *Client) QueuePrompt(ctx context.Context, g Graph) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt":    g,
		"client_id": c.clientID,
	})
	if err != nil {
		return "", fmt.Errorf("encode graph: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.PromptID == "" {
		return "", fmt.Errorf("backend returned empty prompt id")
	}
	return decoded.PromptID, nil
}

// HistoryEntry is the backend's job record for one queued prompt.
type HistoryEntry struct {
	Status struct {
		Completed bool   `json:"completed"`
		Error     string `json:"error"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []struct {
			Filename string `json:"filename"`
		} `json:"images"`
	} `json:"outputs"`
}

// History fetches the job record for a prompt. A job that has not started
// yet is absent from history; that is reported as found=false, not an error.
func (c *Client) History(ctx context.Context, promptID string) (*HistoryEntry, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded map[string]HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	entry, ok := decoded[promptID]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}
