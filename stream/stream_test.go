package stream

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

// chunkReader delivers a fixed list of chunks, then err (io.EOF when nil).
type chunkReader struct {
	chunks []string
	err    error
	closed bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed = true
	return nil
}

func drain(s *Stream) []Outcome {
	var out []Outcome
	for o := range s.All() {
		out = append(out, o)
	}
	return out
}

func TestStream_Sequence(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		readErr error
		want    []Kind
		wantErr bool
	}{
		{
			name:   "explicit end",
			chunks: []string{"data:{\"a\":1}\n data:{\"b\":2}\n[DONE]\n"},
			want:   []Kind{KindEvent, KindEvent, KindTermination},
		},
		{
			name:   "ambiguous end",
			chunks: []string{"data:{\"a\":1}\n", "data:{\"b\":2}\n"},
			want:   []Kind{KindEvent, KindEvent, KindTermination},
		},
		{
			name:    "transport error keeps earlier events",
			chunks:  []string{"data:{\"a\":1}\ndata:{\"b\""},
			readErr: errors.New("connection reset by peer"),
			want:    []Kind{KindEvent, KindTransportError},
			wantErr: true,
		},
		{
			name:    "[DONE] then read error",
			chunks:  []string{"data:{\"a\":1}\n", "data: [DONE]\n"},
			readErr: io.ErrUnexpectedEOF,
			want:    []Kind{KindEvent, KindTermination},
		},
		{
			name:    "[DONE] in same chunk as partial line then read error",
			chunks:  []string{"data:{\"a\":1}\ndata: [DONE]\ndata: {\"b\""},
			readErr: errors.New("connection reset by peer"),
			want:    []Kind{KindEvent, KindTermination},
		},
		{
			name:    "data after sentinel halts",
			chunks:  []string{"data: [DONE]\n", "data: {\"x\":1}\ndata: {\"y\":2}\n"},
			want:    []Kind{KindTermination, KindProtocolError},
			wantErr: true,
		},
		{
			name:   "malformed frame in the middle",
			chunks: []string{"data:{oops}\n", "data:{\"a\":1}\n", "data: [DONE]\n"},
			want:   []Kind{KindDecodeError, KindEvent, KindTermination},
		},
		{
			name:   "empty body",
			chunks: nil,
			want:   []Kind{KindTermination},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &chunkReader{chunks: append([]string(nil), tt.chunks...), err: tt.readErr}
			s := NewStream(src)

			got := kinds(drain(s))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("outcome kinds = %v, want %v", got, tt.want)
			}
			if (s.Err() != nil) != tt.wantErr {
				t.Errorf("Err() = %v, wantErr %v", s.Err(), tt.wantErr)
			}
			if !src.closed {
				t.Error("source should be closed once the stream is exhausted")
			}
			if _, ok := s.Next(); ok {
				t.Error("Next() after exhaustion should report ok=false")
			}
		})
	}
}

func TestStream_ChunkingIndependent(t *testing.T) {
	body := "data: {\"n\":1}\n\ndata: {\"n\":2}\r\n\r\ndata:{bad}\ndata: {\"n\":3}\ndata: [DONE]\n"

	want := kinds(drain(NewStream(io.NopCloser(strings.NewReader(body)))))

	tests := []struct {
		name      string
		r         io.Reader
		chunkSize int
	}{
		{"one byte", iotest.OneByteReader(strings.NewReader(body)), 0},
		{"half", iotest.HalfReader(strings.NewReader(body)), 0},
		{"data with eof", iotest.DataErrReader(strings.NewReader(body)), 0},
		{"small buffer", strings.NewReader(body), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(drain(NewStream(io.NopCloser(tt.r), WithChunkSize(tt.chunkSize))))
			if !reflect.DeepEqual(got, want) {
				t.Errorf("kinds = %v, want %v", got, want)
			}
		})
	}
}

func TestStream_ErrReader(t *testing.T) {
	cause := errors.New("tls: bad record MAC")
	s := NewStream(io.NopCloser(iotest.ErrReader(cause)))

	o, ok := s.Next()
	if !ok || o.Kind != KindTransportError {
		t.Fatalf("Next() = %v, %v, want transport error", o.Kind, ok)
	}
	if !errors.Is(s.Err(), cause) {
		t.Errorf("Err() = %v, want %v", s.Err(), cause)
	}
}

func TestStream_CloseEarly(t *testing.T) {
	src := &chunkReader{chunks: []string{"data:{\"a\":1}\n", "data:{\"b\":2}\n"}}
	s := NewStream(src, WithChunkSize(64))

	o, ok := s.Next()
	if !ok || o.Kind != KindEvent {
		t.Fatalf("Next() = %v, %v, want event", o.Kind, ok)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.closed {
		t.Error("Close() should close the source")
	}
	if _, ok := s.Next(); ok {
		t.Error("Next() after Close() should report ok=false")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name       string
		chunks     []string
		readErr    error
		wantEvents int
		wantErr    error
	}{
		{
			name:       "explicit",
			chunks:     []string{"data:{\"a\":1}\ndata:oops\ndata:{\"b\":2}\ndata: [DONE]\n"},
			wantEvents: 2,
		},
		{
			name:       "ambiguous",
			chunks:     []string{"data:{\"a\":1}\n"},
			wantEvents: 1,
			wantErr:    ErrAmbiguousEnd,
		},
		{
			name:       "protocol error",
			chunks:     []string{"data:{\"a\":1}\ndata: [DONE]\ndata:{\"b\":2}\n"},
			wantEvents: 1,
			wantErr:    ErrDataAfterDone,
		},
		{
			name:       "read error after sentinel",
			chunks:     []string{"data:{\"a\":1}\ndata: [DONE]\n"},
			readErr:    io.ErrUnexpectedEOF,
			wantEvents: 1,
		},
		{
			name:       "transport error",
			chunks:     []string{"data:{\"a\":1}\n"},
			readErr:    io.ErrUnexpectedEOF,
			wantEvents: 1,
			wantErr:    io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(&chunkReader{chunks: tt.chunks, err: tt.readErr})
			events, err := Collect(s)
			if len(events) != tt.wantEvents {
				t.Errorf("Collect() events = %d, want %d", len(events), tt.wantEvents)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("Collect() unexpected error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Collect() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
