package stream

import (
	"errors"
	"io"
	"iter"

	"go.uber.org/zap"
)

const defaultChunkSize = 4096

type Option func(*Stream)

// WithChunkSize sets the size of the buffer handed to the source's Read.
func WithChunkSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Stream pulls chunks from src on demand and hands out decoded outcomes one
// at a time. Outcomes decoded before a terminal error are always delivered
// before it.
type Stream struct {
	src       io.ReadCloser
	dec       *Decoder
	chunkSize int
	buf       []byte
	pending   []Outcome
	done      bool
	closed    bool
	err       error
	logger    *zap.Logger
}

func NewStream(src io.ReadCloser, opts ...Option) *Stream {
	s := &Stream{
		src:       src,
		dec:       NewDecoder(),
		chunkSize: defaultChunkSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buf = make([]byte, s.chunkSize)
	return s
}

// Next returns the next outcome. ok is false once the stream is exhausted.
func (s *Stream) Next() (o Outcome, ok bool) {
	for len(s.pending) == 0 {
		if s.done {
			return Outcome{}, false
		}
		s.fill()
	}

	o = s.pending[0]
	s.pending = s.pending[1:]

	if o.Kind == KindProtocolError || o.Kind == KindTransportError {
		s.err = o.Err()
		s.pending = nil
		s.finish()
	}
	return o, true
}

func (s *Stream) fill() {
	n, err := s.src.Read(s.buf)
	if n > 0 {
		s.pending = append(s.pending, s.dec.Feed(s.buf[:n])...)
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.pending = append(s.pending, s.dec.Complete()...)
		s.finish()
	default:
		if o, ok := s.dec.Fail(err); ok {
			s.logger.Debug("stream transport failed", zap.Error(err))
			s.pending = append(s.pending, o)
		} else {
			s.logger.Debug("ignoring read error after end of stream", zap.Error(err))
		}
		s.finish()
	}
}

func (s *Stream) finish() {
	s.done = true
	s.Close()
}

// All ranges over the remaining outcomes.
func (s *Stream) All() iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		for {
			o, ok := s.Next()
			if !ok || !yield(o) {
				return
			}
		}
	}
}

// Err returns the terminal transport or protocol error, if any.
func (s *Stream) Err() error {
	return s.err
}

// Explicit reports whether the producer confirmed the end of the stream.
func (s *Stream) Explicit() bool {
	return s.dec.Explicit()
}

func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	return s.src.Close()
}

// Collect drains s and returns the decoded events. Decode errors are skipped.
// The returned error is the terminal transport or protocol error, or
// ErrAmbiguousEnd when the source closed without the [DONE] sentinel; events
// decoded before it are returned either way.
func Collect(s *Stream) ([]Event, error) {
	defer s.Close()

	var events []Event
	for o := range s.All() {
		if o.Kind == KindEvent {
			events = append(events, *o.Event)
		}
	}

	if err := s.Err(); err != nil {
		return events, err
	}
	if !s.Explicit() {
		return events, ErrAmbiguousEnd
	}
	return events, nil
}
