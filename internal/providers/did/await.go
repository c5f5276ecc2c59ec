package did

import (
	"context"
	"errors"
	"strings"
	"time"
)

const defaultPollInterval = 10 * time.Second

// AwaitOptions control the polling loop. Observer, when set, is invoked once
// per poll in order, including for the terminal status; it must not block for
// long and never affects control flow.
type AwaitOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	Observer func(TalkStatus)
}

// Await polls a talk on a fixed cadence until it reaches a terminal status,
// the context is cancelled, or the timeout elapses. The first failed
// poll aborts the wait. A Timeout of zero waits indefinitely.
func (c *Client) Await(ctx context.Context, talkID string, opts AwaitOptions) (*TalkResult, error) {
	id := strings.TrimSpace(talkID)
	if id == "" {
		return nil, &PollError{Err: errors.New("talk id is required")}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	for {
		st, err := c.GetTalk(ctx, id)
		if err != nil {
			return nil, err
		}
		if opts.Observer != nil {
			opts.Observer(*st)
		}

		switch st.Status {
		case StatusDone:
			if st.ResultURL == "" {
				return nil, &PollError{TalkID: id, Err: errors.New("done without result url")}
			}
			return &TalkResult{URL: st.ResultURL}, nil
		case StatusError:
			msg := st.Message
			if msg == "" {
				msg = "video generation failed"
			}
			return nil, &PollError{TalkID: id, Message: msg}
		}

		// Stop before sleeping when the next poll could not land before the deadline.
		if !deadline.IsZero() && time.Now().Add(interval).After(deadline) {
			return nil, &PollError{TalkID: id, Err: ErrAwaitTimeout}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
