package did

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/infra"
)

// Options configures the D-ID talks client.
type Options struct {
	APIKey         string
	BaseURL        string
	SourceURL      string
	ResultFormat   string
	DefaultVoiceID string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the D-ID talks API. The avatar source
// image and the result format are fixed per client; each submission only
// varies the script and optionally the voice.
type Client struct {
	apiKey       string
	baseURL      string
	sourceURL    string
	resultFormat string
	defaultVoice string
	httpClient   *http.Client
	logger       *infra.Logger
}

// TalkRequest captures the inputs for one presenter video.
type TalkRequest struct {
	Script  string
	VoiceID string
}

// Talk identifies a submitted synthesis job.
type Talk struct {
	ID        string
	CreatedAt time.Time
}

// Status is the provider-reported lifecycle state of a talk.
type Status string

const (
	StatusCreated Status = "created"
	StatusStarted Status = "started"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// IsTerminal reports whether the status ends the polling lifecycle. Unknown
// status strings are treated as still in flight.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// TalkStatus is a single status snapshot for a submitted talk. Message is
// populated with the provider diagnostic only when Status is error.
type TalkStatus struct {
	Status    Status
	ResultURL string
	Message   string
}

// TalkResult is the completed video. The URL points at provider-hosted
// storage and is only meaningful once a talk reports done.
type TalkResult struct {
	URL string
}

type createTalkPayload struct {
	Script    scriptPayload `json:"script"`
	SourceURL string        `json:"source_url"`
	Config    configPayload `json:"config"`
}

type scriptPayload struct {
	Type     string        `json:"type"`
	Input    string        `json:"input"`
	Provider voiceProvider `json:"provider"`
}

type voiceProvider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
}

type configPayload struct {
	ResultFormat string `json:"result_format"`
}

type createTalkResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
}

type talkStatusResponse struct {
	Status    string          `json:"status"`
	ResultURL string          `json:"result_url"`
	Result    json.RawMessage `json:"result"`
	Error     *errorDetail    `json:"error"`
}

type errorDetail struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.d-id.com"
	}
	sourceURL := strings.TrimSpace(opts.SourceURL)
	if sourceURL == "" {
		sourceURL = "https://cdn.d-id.com/images/predefined_laura.jpg"
	}
	resultFormat := strings.TrimSpace(opts.ResultFormat)
	if resultFormat == "" {
		resultFormat = "mp4"
	}
	defaultVoice := strings.TrimSpace(opts.DefaultVoiceID)
	if defaultVoice == "" {
		defaultVoice = DefaultVoiceID
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
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		sourceURL:    sourceURL,
		resultFormat: resultFormat,
		defaultVoice: defaultVoice,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreateTalk submits a script for synthesis and returns the provider job
// handle. Credential and script preconditions are checked before any network
// call is made.
func (c *Client) CreateTalk(ctx context.Context, req TalkRequest) (*Talk, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	script := strings.TrimSpace(req.Script)
	if script == "" {
		return nil, ErrEmptyScript
	}
	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		voiceID = c.defaultVoice
	}
	payload := createTalkPayload{
		Script: scriptPayload{
			Type:     "text",
			Input:    script,
			Provider: voiceProvider{Type: "microsoft", VoiceID: voiceID},
		},
		SourceURL: c.sourceURL,
		Config:    configPayload{ResultFormat: c.resultFormat},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("did: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/talks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("did: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SubmitError{Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SubmitError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		subErr := &SubmitError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		var detail errorDetail
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Description != "" {
			subErr.Err = fmt.Errorf("%s (%s)", detail.Description, detail.Kind)
		}
		return nil, subErr
	}

	var decoded createTalkResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &SubmitError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw)), Err: fmt.Errorf("decode response: %w", err)}
	}
	if decoded.ID == "" {
		return nil, &SubmitError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw)), Err: errors.New("response missing talk id")}
	}

	createdAt := time.Now()
	if decoded.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, decoded.CreatedAt); err == nil {
			createdAt = parsed
		}
	}
	c.logger.Debug().
		Str("talk_id", decoded.ID).
		Str("voice_id", voiceID).
		Msg("did: talk created")
	return &Talk{ID: decoded.ID, CreatedAt: createdAt}, nil
}

// GetTalk fetches the current status of a talk once.
func (c *Client) GetTalk(ctx context.Context, talkID string) (*TalkStatus, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	id := strings.TrimSpace(talkID)
	if id == "" {
		return nil, &PollError{Err: errors.New("talk id is required")}
	}

	endpoint := c.baseURL + "/talks/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &PollError{TalkID: id, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &PollError{TalkID: id, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PollError{TalkID: id, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		var detail errorDetail
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Description != "" {
			return nil, &PollError{TalkID: id, Err: fmt.Errorf("%s (%s)", detail.Description, detail.Kind)}
		}
		return nil, &PollError{TalkID: id, Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var decoded talkStatusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &PollError{TalkID: id, Err: fmt.Errorf("decode response: %w", err)}
	}
	st := &TalkStatus{
		Status:    Status(strings.ToLower(strings.TrimSpace(decoded.Status))),
		ResultURL: strings.TrimSpace(decoded.ResultURL),
	}
	if st.Status == StatusError {
		st.Message = decoded.diagnostic()
	}
	c.logger.Debug().
		Str("talk_id", id).
		Str("status", string(st.Status)).
		Msg("did: polled talk status")
	return st, nil
}

// diagnostic extracts the human-readable failure reason. Newer responses put
// it under error.description, older ones under the result field.
func (r talkStatusResponse) diagnostic() string {
	if r.Error != nil && r.Error.Description != "" {
		return r.Error.Description
	}
	if len(r.Result) > 0 {
		var text string
		if err := json.Unmarshal(r.Result, &text); err == nil {
			return text
		}
		return string(r.Result)
	}
	return ""
}
