// Package stream decodes the line-framed streaming body of a chat completion.
//
// Raw transport bytes flow through a Reassembler, which rebuilds logical lines
// regardless of how the transport chunked them, and then through a Decoder,
// which recognises the framing convention:
//
//	data: {"choices":[...]}\n
//	data: [DONE]\n
//
// Every non-empty line yields exactly one Outcome. Malformed JSON and unknown
// frame kinds are reported per line and never stop the stream; a transport
// failure or data after the [DONE] sentinel ends it.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

var (
	ErrMalformedPayload  = errors.New("malformed frame payload")
	ErrUnrecognizedFrame = errors.New("unrecognized frame")
	ErrDataAfterDone     = errors.New("data received after end of stream")
	ErrAmbiguousEnd      = errors.New("stream closed without end marker")
)

// Kind discriminates the value carried by an Outcome.
type Kind int

const (
	KindEvent Kind = iota
	KindDecodeError
	KindTermination
	KindProtocolError
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindDecodeError:
		return "decode_error"
	case KindTermination:
		return "termination"
	case KindProtocolError:
		return "protocol_error"
	case KindTransportError:
		return "transport_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one successfully decoded data frame.
type Event struct {
	// Line is the raw line the event was decoded from.
	Line    string
	Payload json.RawMessage
	Data    any
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type DecodeReason int

const (
	ReasonMalformedJSON DecodeReason = iota
	ReasonUnrecognizedFrame
)

func (r DecodeReason) String() string {
	if r == ReasonUnrecognizedFrame {
		return "unrecognized_frame"
	}
	return "malformed_json"
}

// DecodeError describes a single line that could not be turned into an Event.
// It is not fatal to the stream.
type DecodeError struct {
	Line    string
	Payload string
	Reason  DecodeReason
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Reason == ReasonUnrecognizedFrame {
		return fmt.Sprintf("unrecognized frame %q", e.Line)
	}
	return fmt.Sprintf("decode frame payload %q: %v", e.Payload, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e.Reason == ReasonUnrecognizedFrame {
		return ErrUnrecognizedFrame
	}
	return ErrMalformedPayload
}

// Termination marks the end of the stream. Explicit is true when the producer
// sent the [DONE] sentinel and false when the transport simply closed.
type Termination struct {
	Explicit bool
}

type ProtocolError struct {
	Line string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: %q", ErrDataAfterDone, e.Line)
}

func (e *ProtocolError) Unwrap() error { return ErrDataAfterDone }

type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "stream transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Outcome is one element of the decoded sequence. Exactly one of the pointer
// fields is set, matching Kind.
type Outcome struct {
	Kind           Kind
	Event          *Event
	DecodeError    *DecodeError
	Termination    *Termination
	ProtocolError  *ProtocolError
	TransportError *TransportError
}

// Err returns the error carried by the outcome, or nil for events and
// terminations.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindDecodeError:
		return o.DecodeError
	case KindProtocolError:
		return o.ProtocolError
	case KindTransportError:
		return o.TransportError
	}
	return nil
}

// Terminal reports whether no further outcomes follow this one.
// An explicit termination is not terminal: trailing data must still be detected.
func (o Outcome) Terminal() bool {
	switch o.Kind {
	case KindProtocolError, KindTransportError:
		return true
	case KindTermination:
		return !o.Termination.Explicit
	}
	return false
}
