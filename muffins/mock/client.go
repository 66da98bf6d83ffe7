package mock

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Muffins-Corp/muffinscorp-go/muffins"
)

// Client replays canned frames as a streaming completion.
type Client struct {
	Frames     string
	Completion muffins.Completion
	Error      error
	Delay      time.Duration
	// StreamErr, when set, is returned by the body after Frames are consumed.
	StreamErr error

	CallCount   int
	LastRequest muffins.ChatRequest
	AllRequests []muffins.ChatRequest
}

func New() *Client {
	return &Client{
		Frames:     "data: {\"choices\":[{\"delta\":{\"content\":\"This is a mock response.\"}}]}\ndata: [DONE]\n",
		Completion: muffins.Completion{"content": "This is a mock response."},
	}
}

func (c *Client) WithFrames(frames string) *Client {
	c.Frames = frames
	return c
}

func (c *Client) WithCompletion(completion muffins.Completion) *Client {
	c.Completion = completion
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithStreamError(err error) *Client {
	c.StreamErr = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Create(ctx context.Context, req muffins.ChatRequest) (muffins.Completion, error) {
	if err := c.record(ctx, req); err != nil {
		return nil, err
	}
	return c.Completion, nil
}

func (c *Client) CreateStream(ctx context.Context, req muffins.ChatRequest) (*muffins.ChatStream, error) {
	if err := c.record(ctx, req); err != nil {
		return nil, err
	}

	var body io.Reader = strings.NewReader(c.Frames)
	if c.StreamErr != nil {
		body = io.MultiReader(body, errReader{c.StreamErr})
	}
	return muffins.NewChatStream(io.NopCloser(body), nil), nil
}

func (c *Client) record(ctx context.Context, req muffins.ChatRequest) error {
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)

	if c.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Delay):
		}
	}

	if c.Error != nil {
		return c.Error
	}
	return muffins.ValidateMessages(req.Messages)
}

func (c *Client) Reset() {
	c.CallCount = 0
	c.LastRequest = muffins.ChatRequest{}
	c.AllRequests = nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

var _ muffins.ChatClient = (*Client)(nil)
