package stream

import (
	"encoding/json"
	"strings"
)

type State int

const (
	StateStreaming State = iota
	StateTerminated
)

func (s State) String() string {
	if s == StateTerminated {
		return "terminated"
	}
	return "streaming"
}

// Decoder turns reassembled lines into Outcomes. It performs no I/O and must
// be driven by a single producer.
type Decoder struct {
	lines    Reassembler
	state    State
	explicit bool
	failed   bool
	closed   bool
	halted   bool
}

// NewDecoder returns a decoder in StateStreaming.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// State returns the current decoder state.
func (d *Decoder) State() State { return d.state }

// Explicit reports whether the [DONE] sentinel has been seen.
func (d *Decoder) Explicit() bool { return d.explicit }

// Feed pushes one transport chunk and returns the outcomes of every line it
// completed, in arrival order. Nothing is returned after a terminal outcome.
func (d *Decoder) Feed(chunk []byte) []Outcome {
	if d.failed || d.closed || d.halted {
		return nil
	}

	var out []Outcome
	for _, line := range d.lines.Feed(chunk) {
		o, ok := d.Decode(line)
		if !ok {
			continue
		}
		out = append(out, o)
		if o.Terminal() {
			break
		}
	}
	return out
}

// Complete is called when the transport closes. The unterminated remainder is
// decoded as a final line, and a non-explicit Termination is appended when the
// sentinel never arrived.
func (d *Decoder) Complete() []Outcome {
	if d.failed || d.closed || d.halted {
		return nil
	}
	d.closed = true

	var out []Outcome
	if line, ok := d.lines.Flush(); ok {
		if o, ok := d.Decode(line); ok {
			out = append(out, o)
		}
	}

	if d.state == StateStreaming {
		d.state = StateTerminated
		out = append(out, Outcome{Kind: KindTermination, Termination: &Termination{Explicit: false}})
	}
	return out
}

// Fail records a transport failure. Buffered bytes are discarded and no
// further lines are processed. ok is false when the stream had already ended,
// either with the [DONE] sentinel or a protocol error: the response is
// complete and the failure is not reported.
func (d *Decoder) Fail(err error) (o Outcome, ok bool) {
	ended := d.explicit || d.halted
	d.failed = true
	d.state = StateTerminated
	d.lines.Reset()
	if ended {
		return Outcome{}, false
	}
	return Outcome{Kind: KindTransportError, TransportError: &TransportError{Err: err}}, true
}

// Decode classifies a single logical line. ok is false for blank lines, which
// produce nothing. The first line after termination yields a ProtocolError
// and halts the decoder.
func (d *Decoder) Decode(line string) (o Outcome, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || d.halted {
		return Outcome{}, false
	}

	if d.state == StateTerminated {
		d.halted = true
		return Outcome{Kind: KindProtocolError, ProtocolError: &ProtocolError{Line: line}}, true
	}

	if trimmed == doneSentinel {
		return d.terminate(), true
	}

	payload, found := strings.CutPrefix(trimmed, dataPrefix)
	if !found {
		return Outcome{
			Kind:        KindDecodeError,
			DecodeError: &DecodeError{Line: line, Reason: ReasonUnrecognizedFrame},
		}, true
	}

	payload = strings.TrimSpace(payload)
	if payload == doneSentinel {
		return d.terminate(), true
	}

	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Outcome{
			Kind: KindDecodeError,
			DecodeError: &DecodeError{
				Line:    line,
				Payload: payload,
				Reason:  ReasonMalformedJSON,
				Err:     err,
			},
		}, true
	}

	return Outcome{
		Kind:  KindEvent,
		Event: &Event{Line: line, Payload: json.RawMessage(payload), Data: data},
	}, true
}

func (d *Decoder) terminate() Outcome {
	d.state = StateTerminated
	d.explicit = true
	return Outcome{Kind: KindTermination, Termination: &Termination{Explicit: true}}
}
