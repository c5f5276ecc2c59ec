package did

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestAwaitPollsUntilDone(t *testing.T) {
	transport := newSequenceTransport(
		statusFrame(map[string]any{"status": "started"}),
		statusFrame(map[string]any{"status": "started"}),
		statusFrame(map[string]any{"status": "done", "result_url": "https://cdn.example.com/out.mp4"}),
	)
	client := newAwaitTestClient(t, transport)

	var observed []Status
	result, err := client.Await(context.Background(), "tlk_1", AwaitOptions{
		Interval: time.Millisecond,
		Observer: func(st TalkStatus) { observed = append(observed, st.Status) },
	})
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if result.URL != "https://cdn.example.com/out.mp4" {
		t.Fatalf("result url = %q", result.URL)
	}
	if transport.callCount() != 3 {
		t.Fatalf("polls = %d, want 3", transport.callCount())
	}
	want := []Status{StatusStarted, StatusStarted, StatusDone}
	if len(observed) != len(want) {
		t.Fatalf("observed %v, want %v", observed, want)
	}
	for i, st := range want {
		if observed[i] != st {
			t.Fatalf("observed[%d] = %q, want %q", i, observed[i], st)
		}
	}
}

func TestAwaitReturnsProviderDiagnostic(t *testing.T) {
	transport := newSequenceTransport(
		statusFrame(map[string]any{"status": "started"}),
		statusFrame(map[string]any{"status": "error", "result": "bad input"}),
	)
	client := newAwaitTestClient(t, transport)

	var observed []Status
	_, err := client.Await(context.Background(), "tlk_1", AwaitOptions{
		Interval: time.Millisecond,
		Observer: func(st TalkStatus) { observed = append(observed, st.Status) },
	})
	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("err = %T %v, want *PollError", err, err)
	}
	if pollErr.Message != "bad input" {
		t.Fatalf("message = %q, want bad input", pollErr.Message)
	}
	if transport.callCount() != 2 {
		t.Fatalf("polls = %d, want 2", transport.callCount())
	}
	if len(observed) != 2 || observed[1] != StatusError {
		t.Fatalf("observed = %v, want trailing error status", observed)
	}
}

func TestAwaitAbortsOnTransportFailure(t *testing.T) {
	transport := newSequenceTransport(
		statusFrame(map[string]any{"status": "started"}),
		failFrame(io.ErrUnexpectedEOF),
	)
	client := newAwaitTestClient(t, transport)

	_, err := client.Await(context.Background(), "tlk_1", AwaitOptions{Interval: time.Millisecond})
	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("err = %T %v, want *PollError", err, err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want wrapped transport cause", err)
	}
	if transport.callCount() != 2 {
		t.Fatalf("polls = %d, want 2", transport.callCount())
	}
}

func TestAwaitTimeout(t *testing.T) {
	frames := make([]responseStub, 0, 8)
	for i := 0; i < 8; i++ {
		frames = append(frames, statusFrame(map[string]any{"status": "started"}))
	}
	transport := newSequenceTransport(frames...)
	client := newAwaitTestClient(t, transport)

	_, err := client.Await(context.Background(), "tlk_1", AwaitOptions{
		Interval: 50 * time.Millisecond,
		Timeout:  time.Millisecond,
	})
	if !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("err = %v, want ErrAwaitTimeout", err)
	}
	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("err = %T, want *PollError", err)
	}
	if transport.callCount() != 1 {
		t.Fatalf("polls = %d, want exactly 1 before timing out", transport.callCount())
	}
}

func TestAwaitDoneWithoutResultURL(t *testing.T) {
	transport := newSequenceTransport(
		statusFrame(map[string]any{"status": "done"}),
	)
	client := newAwaitTestClient(t, transport)

	_, err := client.Await(context.Background(), "tlk_1", AwaitOptions{Interval: time.Millisecond})
	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("err = %T %v, want *PollError", err, err)
	}
}

func TestAwaitHonorsCancellation(t *testing.T) {
	frames := make([]responseStub, 0, 4)
	for i := 0; i < 4; i++ {
		frames = append(frames, statusFrame(map[string]any{"status": "started"}))
	}
	transport := newSequenceTransport(frames...)
	client := newAwaitTestClient(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := client.Await(ctx, "tlk_1", AwaitOptions{
		Interval: time.Minute,
		Observer: func(TalkStatus) { cancel() },
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if transport.callCount() != 1 {
		t.Fatalf("polls = %d, want 1", transport.callCount())
	}
}

func newAwaitTestClient(t *testing.T, transport http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

type sequenceTransport struct {
	mu     sync.Mutex
	frames []responseStub
	calls  int
}

func newSequenceTransport(frames ...responseStub) *sequenceTransport {
	return &sequenceTransport{frames: frames}
}

func (s *sequenceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.frames) {
		return nil, fmt.Errorf("unexpected poll #%d for %s", s.calls+1, req.URL.Path)
	}
	stub := s.frames[s.calls]
	s.calls++
	if stub.err != nil {
		return nil, stub.err
	}
	return stub.toResponse(), nil
}

func (s *sequenceTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func statusFrame(payload map[string]any) responseStub {
	body, _ := json.Marshal(payload)
	return responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func failFrame(err error) responseStub {
	return responseStub{err: err}
}
