package muffins

import (
	"encoding/json"
	"strings"

	"github.com/Muffins-Corp/muffinscorp-go/stream"
)

// Some deployments answer in the prefixed data-stream format instead of
// "data:" frames: 0:"text" carries a text delta, d:{...} finishes the
// message, and the other single-character codes (f:, e:, ...) are metadata.
// The decoder reports all of them as unrecognized frames.
const (
	partText   = "0"
	partFinish = "d"
)

// dataStreamPart splits an unrecognized frame into its type code and JSON
// payload. ok is false when the line is not in the prefixed format.
func dataStreamPart(de *stream.DecodeError) (code, payload string, ok bool) {
	if de == nil || de.Reason != stream.ReasonUnrecognizedFrame {
		return "", "", false
	}
	code, payload, ok = strings.Cut(strings.TrimSpace(de.Line), ":")
	if !ok || len(code) != 1 {
		return "", "", false
	}
	return code, payload, true
}

// TextPart returns the text carried by a 0:"..." frame.
func TextPart(de *stream.DecodeError) (string, bool) {
	code, payload, ok := dataStreamPart(de)
	if !ok || code != partText {
		return "", false
	}
	var text string
	if err := json.Unmarshal([]byte(payload), &text); err != nil {
		return "", false
	}
	return text, true
}

// IsFinishPart reports whether de is a d:{...} frame closing the message.
func IsFinishPart(de *stream.DecodeError) bool {
	code, _, ok := dataStreamPart(de)
	return ok && code == partFinish
}

// IsMetadataPart reports whether de is a prefixed frame that carries no text,
// such as f:, e: or d:.
func IsMetadataPart(de *stream.DecodeError) bool {
	code, _, ok := dataStreamPart(de)
	return ok && code != partText
}
