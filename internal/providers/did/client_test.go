package did

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestCreateTalkBuildsWirePayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/talks", http.StatusCreated, map[string]any{
		"id":         "tlk_abc123",
		"created_at": "2024-05-01T10:30:00.500Z",
		"status":     "created",
	})
	client, err := NewClient(Options{
		APIKey:     "user:pass",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	talk, err := client.CreateTalk(context.Background(), TalkRequest{Script: "Hello and welcome!"})
	if err != nil {
		t.Fatalf("create talk: %v", err)
	}
	if talk.ID != "tlk_abc123" {
		t.Fatalf("talk id = %q, want tlk_abc123", talk.ID)
	}
	if talk.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be parsed")
	}
	if transport.lastAuth != "Basic user:pass" {
		t.Fatalf("authorization = %q, want Basic user:pass", transport.lastAuth)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	script := payload["script"].(map[string]any)
	if script["type"] != "text" {
		t.Fatalf("script.type = %v, want text", script["type"])
	}
	if script["input"] != "Hello and welcome!" {
		t.Fatalf("script.input = %v", script["input"])
	}
	provider := script["provider"].(map[string]any)
	if provider["type"] != "microsoft" {
		t.Fatalf("provider.type = %v, want microsoft", provider["type"])
	}
	if provider["voice_id"] != "en-US-JennyNeural" {
		t.Fatalf("provider.voice_id = %v, want en-US-JennyNeural", provider["voice_id"])
	}
	if payload["source_url"] != "https://cdn.d-id.com/images/predefined_laura.jpg" {
		t.Fatalf("source_url = %v", payload["source_url"])
	}
	config := payload["config"].(map[string]any)
	if config["result_format"] != "mp4" {
		t.Fatalf("config.result_format = %v, want mp4", config["result_format"])
	}
}

func TestCreateTalkUsesRequestedVoice(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/talks", http.StatusCreated, map[string]any{"id": "tlk_1"})
	client, err := NewClient(Options{
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.CreateTalk(context.Background(), TalkRequest{
		Script:  "Selamat datang",
		VoiceID: "id-ID-GadisNeural",
	}); err != nil {
		t.Fatalf("create talk: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	provider := payload["script"].(map[string]any)["provider"].(map[string]any)
	if provider["voice_id"] != "id-ID-GadisNeural" {
		t.Fatalf("provider.voice_id = %v, want id-ID-GadisNeural", provider["voice_id"])
	}
}

func TestCreateTalkReturnsProviderJobID(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/talks", http.StatusCreated, map[string]any{"id": "job1"})
	client, err := NewClient(Options{
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	talk, err := client.CreateTalk(context.Background(), TalkRequest{Script: "hi"})
	if err != nil {
		t.Fatalf("create talk: %v", err)
	}
	if talk.ID != "job1" {
		t.Fatalf("talk id = %q, want job1", talk.ID)
	}
	if transport.calls != 1 {
		t.Fatalf("transport calls = %d, want 1", transport.calls)
	}
}

func TestCreateTalkRequiresScript(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.CreateTalk(context.Background(), TalkRequest{Script: "   "}); !errors.Is(err, ErrEmptyScript) {
		t.Fatalf("err = %v, want ErrEmptyScript", err)
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}

func TestCreateTalkRequiresCredentials(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.HasCredentials() {
		t.Fatalf("expected no credentials")
	}

	if _, err := client.CreateTalk(context.Background(), TalkRequest{Script: "hello"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}

func TestCreateTalkProviderRejection(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/talks", http.StatusBadRequest, map[string]any{
		"kind":        "ValidationError",
		"description": "script text too long",
	})
	client, err := NewClient(Options{
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateTalk(context.Background(), TalkRequest{Script: "hello"})
	var subErr *SubmitError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %T %v, want *SubmitError", err, err)
	}
	if subErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", subErr.StatusCode, http.StatusBadRequest)
	}
	if subErr.Body == "" {
		t.Fatalf("expected raw body to be retained")
	}
	if !strings.Contains(subErr.Error(), "script text too long") {
		t.Fatalf("error %q missing provider description", subErr.Error())
	}
}

func TestCreateTalkMissingID(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/talks", http.StatusCreated, map[string]any{"status": "created"})
	client, err := NewClient(Options{
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateTalk(context.Background(), TalkRequest{Script: "hello"})
	var subErr *SubmitError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %T %v, want *SubmitError", err, err)
	}
}

func TestGetTalkParsesStatus(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/talks/tlk_1", http.StatusOK, map[string]any{
		"status":     "started",
		"result_url": "",
	})
	client, err := NewClient(Options{
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	st, err := client.GetTalk(context.Background(), "tlk_1")
	if err != nil {
		t.Fatalf("get talk: %v", err)
	}
	if st.Status != StatusStarted {
		t.Fatalf("status = %q, want started", st.Status)
	}
	if st.Status.IsTerminal() {
		t.Fatalf("started must not be terminal")
	}
	if transport.lastAuth != "Basic key" {
		t.Fatalf("authorization = %q, want Basic key", transport.lastAuth)
	}
}

func TestGetTalkErrorDiagnostics(t *testing.T) {
	testCases := []struct {
		name    string
		payload map[string]any
		want    string
	}{{
		name:    "result field",
		payload: map[string]any{"status": "error", "result": "bad input"},
		want:    "bad input",
	}, {
		name: "error description preferred",
		payload: map[string]any{
			"status": "error",
			"result": "ignored",
			"error":  map[string]any{"kind": "RenderError", "description": "face not detected"},
		},
		want: "face not detected",
	}, {
		name:    "no diagnostic",
		payload: map[string]any{"status": "error"},
		want:    "",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			transport := &captureTransport{responses: map[string]responseStub{}}
			transport.setJSONResponse("/talks/tlk_err", http.StatusOK, tc.payload)
			client, err := NewClient(Options{
				APIKey:     "key",
				HTTPClient: &http.Client{Transport: transport},
			})
			if err != nil {
				t.Fatalf("new client: %v", err)
			}

			st, err := client.GetTalk(context.Background(), "tlk_err")
			if err != nil {
				t.Fatalf("get talk: %v", err)
			}
			if st.Status != StatusError {
				t.Fatalf("status = %q, want error", st.Status)
			}
			if st.Message != tc.want {
				t.Fatalf("message = %q, want %q", st.Message, tc.want)
			}
		})
	}
}

type captureTransport struct {
	responses map[string]responseStub
	lastBody  []byte
	lastAuth  string
	calls     int
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
	err    error
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	c.lastAuth = req.Header.Get("Authorization")
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		if stub.err != nil {
			return nil, stub.err
		}
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}
