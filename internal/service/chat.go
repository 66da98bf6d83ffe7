package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Muffins-Corp/muffinscorp-go/internal/domain"
	"github.com/Muffins-Corp/muffinscorp-go/internal/metrics"
	"github.com/Muffins-Corp/muffinscorp-go/internal/repository"
	"github.com/Muffins-Corp/muffinscorp-go/muffins"
	"github.com/Muffins-Corp/muffinscorp-go/stream"
)

const recordTimeout = 5 * time.Second

type ChatService interface {
	// Stream writes text deltas to w as they arrive. Partial output is kept
	// when the stream fails; the terminal error is returned with the transcript.
	Stream(ctx context.Context, req muffins.ChatRequest, w io.Writer) (*domain.Transcript, error)
	Complete(ctx context.Context, req muffins.ChatRequest, w io.Writer) (*domain.Transcript, error)
	History(ctx context.Context, limit int) ([]domain.Transcript, error)
}

type Option func(*chatService)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *chatService) { s.metrics = m }
}

type chatService struct {
	client  muffins.ChatClient
	repo    repository.TranscriptRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewChatService builds the service. repo may be nil, in which case nothing
// is recorded.
func NewChatService(client muffins.ChatClient, repo repository.TranscriptRepository, logger *zap.Logger, opts ...Option) ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &chatService{
		client: client,
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *chatService) Stream(ctx context.Context, req muffins.ChatRequest, w io.Writer) (*domain.Transcript, error) {
	cs, err := s.client.CreateStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer cs.Close()

	if s.metrics != nil {
		s.metrics.IncStreamsInFlight()
		defer s.metrics.DecStreamsInFlight()
	}

	tr := domain.NewTranscript(cs.RequestID(), modelOf(req), promptOf(req.Messages))
	var (
		response  strings.Builder
		streamErr error
		finished  bool
	)
	emit := func(text string) error {
		response.WriteString(text)
		if _, err := io.WriteString(w, text); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

loop:
	for o := range cs.All() {
		switch o.Kind {
		case stream.KindEvent:
			tr.Events++
			text := muffins.ContentOf(o.Event)
			if text == "" {
				continue
			}
			if streamErr = emit(text); streamErr != nil {
				break loop
			}
		case stream.KindDecodeError:
			// prefixed data-stream frames from servers that do not speak "data:"
			if text, ok := muffins.TextPart(o.DecodeError); ok {
				tr.Events++
				if streamErr = emit(text); streamErr != nil {
					break loop
				}
				continue
			}
			if muffins.IsMetadataPart(o.DecodeError) {
				finished = finished || muffins.IsFinishPart(o.DecodeError)
				continue
			}
			tr.DecodeErrors++
		case stream.KindTermination:
			if o.Termination.Explicit || finished {
				tr.Termination = domain.TerminationExplicit
			} else {
				tr.Termination = domain.TerminationAmbiguous
			}
		case stream.KindProtocolError:
			tr.Termination = domain.TerminationProtocolError
			streamErr = o.Err()
		case stream.KindTransportError:
			tr.Termination = domain.TerminationTransportError
			streamErr = o.Err()
		}
	}

	if tr.Termination == "" {
		tr.Termination = domain.TerminationAmbiguous
	}
	tr.Response = response.String()

	s.logger.Info("chat stream finished",
		zap.String("request_id", tr.RequestID),
		zap.String("termination", string(tr.Termination)),
		zap.Int("events", tr.Events),
		zap.Int("decode_errors", tr.DecodeErrors),
	)

	s.record(ctx, tr)
	return tr, streamErr
}

func (s *chatService) Complete(ctx context.Context, req muffins.ChatRequest, w io.Writer) (*domain.Transcript, error) {
	completion, err := s.client.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create completion: %w", err)
	}

	tr := domain.NewTranscript("", modelOf(req), promptOf(req.Messages))
	tr.Response = completion.Text()
	tr.Events = 1
	tr.Termination = domain.TerminationExplicit

	if _, err := io.WriteString(w, tr.Response); err != nil {
		return tr, fmt.Errorf("write output: %w", err)
	}

	s.record(ctx, tr)
	return tr, nil
}

func (s *chatService) History(ctx context.Context, limit int) ([]domain.Transcript, error) {
	if s.repo == nil {
		return nil, nil
	}
	transcripts, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	return transcripts, nil
}

// record stores tr when a repository is configured. Failures are logged only.
func (s *chatService) record(ctx context.Context, tr *domain.Transcript) {
	if s.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, tr); err != nil {
		s.logger.Warn("failed to record transcript",
			zap.String("transcript_id", tr.ID.String()),
			zap.Error(err),
		)
	}
}

func modelOf(req muffins.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return muffins.DefaultModel
}

// promptOf returns the last user message, which is what the transcript is
// indexed by.
func promptOf(messages []muffins.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == muffins.RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
