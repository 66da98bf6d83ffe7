package muffins

import (
	"context"
	"io"
	"iter"
	"net/http"

	"go.uber.org/zap"

	"github.com/Muffins-Corp/muffinscorp-go/stream"
)

// ChatClient is the part of the API a conversation front end needs.
type ChatClient interface {
	Create(ctx context.Context, req ChatRequest) (Completion, error)
	CreateStream(ctx context.Context, req ChatRequest) (*ChatStream, error)
}

type ChatRequest struct {
	Messages []Message
	// Model falls back to the client's configured model when empty.
	Model string
}

type chatPayload struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
}

// Completion is a non-streaming chat response as returned by the API.
type Completion map[string]any

// Text extracts the assistant text from the completion, if any.
func (c Completion) Text() string {
	return contentOf(map[string]any(c))
}

type Chat struct {
	client *Client
}

func (ch *Chat) payload(req ChatRequest, streaming bool) (chatPayload, error) {
	if err := ValidateMessages(req.Messages); err != nil {
		return chatPayload{}, err
	}
	model := req.Model
	if model == "" {
		model = ch.client.model
	}
	return chatPayload{Messages: req.Messages, Model: model, Stream: streaming}, nil
}

func (ch *Chat) Create(ctx context.Context, req ChatRequest) (Completion, error) {
	payload, err := ch.payload(req, false)
	if err != nil {
		return nil, err
	}
	if err := ch.client.allow("chat"); err != nil {
		return nil, err
	}

	httpReq, err := ch.client.newRequest(ctx, http.MethodPost, "/chat", payload)
	if err != nil {
		return nil, err
	}

	var completion Completion
	if err := ch.client.doJSON("chat", httpReq, &completion); err != nil {
		return nil, err
	}
	return completion, nil
}

// CreateStream starts a streaming completion. Status errors are returned
// before any frame is read; everything after that is reported through the
// returned stream.
func (ch *Chat) CreateStream(ctx context.Context, req ChatRequest) (*ChatStream, error) {
	payload, err := ch.payload(req, true)
	if err != nil {
		return nil, err
	}
	if err := ch.client.allow("chat_stream"); err != nil {
		return nil, err
	}

	httpReq, err := ch.client.newRequest(ctx, http.MethodPost, "/chat", payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := ch.client.send(ch.client.streamClient, "chat_stream", httpReq)
	if err != nil {
		return nil, err
	}

	requestID := httpReq.Header.Get(HeaderRequestID)
	cs := NewChatStream(resp.Body, ch.client.logger.With(zap.String("request_id", requestID)))
	cs.requestID = requestID
	cs.metrics = ch.client.metrics
	return cs, nil
}

var _ ChatClient = (*Chat)(nil)

// ChatStream is the decoded body of a streaming completion.
type ChatStream struct {
	s         *stream.Stream
	requestID string
	metrics   Recorder
	logger    *zap.Logger
}

func NewChatStream(body io.ReadCloser, logger *zap.Logger) *ChatStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatStream{
		s:       stream.NewStream(body, stream.WithLogger(logger)),
		metrics: nopRecorder{},
		logger:  logger,
	}
}

func (cs *ChatStream) RequestID() string { return cs.requestID }

// Next returns the next outcome of the stream; ok is false when it is over.
func (cs *ChatStream) Next() (stream.Outcome, bool) {
	o, ok := cs.s.Next()
	if !ok {
		return o, false
	}

	cs.metrics.RecordStreamOutcome(o.Kind.String())
	switch o.Kind {
	case stream.KindDecodeError:
		fields := []zap.Field{
			zap.String("reason", o.DecodeError.Reason.String()),
			zap.String("line", truncate(o.DecodeError.Line, 200)),
		}
		if o.DecodeError.Reason == stream.ReasonUnrecognizedFrame {
			cs.logger.Debug("skipping unrecognized stream frame", fields...)
		} else {
			cs.logger.Warn("skipping malformed stream frame", fields...)
		}
	case stream.KindTermination:
		if !o.Termination.Explicit {
			cs.logger.Warn("stream closed without end marker")
		}
	case stream.KindProtocolError, stream.KindTransportError:
		cs.logger.Error("stream aborted", zap.Error(o.Err()))
	}
	return o, true
}

func (cs *ChatStream) All() iter.Seq[stream.Outcome] {
	return func(yield func(stream.Outcome) bool) {
		for {
			o, ok := cs.Next()
			if !ok || !yield(o) {
				return
			}
		}
	}
}

// Err returns the terminal transport or protocol error, if any.
func (cs *ChatStream) Err() error { return cs.s.Err() }

func (cs *ChatStream) Explicit() bool { return cs.s.Explicit() }

func (cs *ChatStream) Close() error { return cs.s.Close() }

// ContentOf extracts the text delta carried by a decoded event. Unknown
// shapes yield "".
func ContentOf(ev *stream.Event) string {
	if ev == nil {
		return ""
	}
	return contentOf(ev.Data)
}

func contentOf(v any) string {
	switch data := v.(type) {
	case string:
		return data
	case map[string]any:
		if choices, ok := data["choices"].([]any); ok && len(choices) > 0 {
			if choice, ok := choices[0].(map[string]any); ok {
				for _, key := range []string{"delta", "message"} {
					if m, ok := choice[key].(map[string]any); ok {
						if s, ok := m["content"].(string); ok {
							return s
						}
					}
				}
				if s, ok := choice["text"].(string); ok {
					return s
				}
			}
		}
		for _, key := range []string{"content", "text", "response"} {
			if s, ok := data[key].(string); ok {
				return s
			}
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
