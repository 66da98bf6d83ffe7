package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TerminationKind records how a chat stream ended.
type TerminationKind string

const (
	TerminationExplicit       TerminationKind = "explicit"
	TerminationAmbiguous      TerminationKind = "ambiguous"
	TerminationTransportError TerminationKind = "transport_error"
	TerminationProtocolError  TerminationKind = "protocol_error"
)

func (k TerminationKind) IsValid() bool {
	switch k {
	case TerminationExplicit, TerminationAmbiguous, TerminationTransportError, TerminationProtocolError:
		return true
	}
	return false
}

// Clean reports whether the producer confirmed the response was complete.
func (k TerminationKind) Clean() bool {
	return k == TerminationExplicit
}

// Transcript is one completed (or aborted) chat exchange.
type Transcript struct {
	ID           uuid.UUID
	RequestID    string
	Model        string
	Prompt       string
	Response     string
	Events       int
	DecodeErrors int
	Termination  TerminationKind
	CreatedAt    time.Time
}

func NewTranscript(requestID, model, prompt string) *Transcript {
	return &Transcript{
		ID:        uuid.New(),
		RequestID: requestID,
		Model:     model,
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}
}

func (t *Transcript) Validate() error {
	if strings.TrimSpace(t.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if !t.Termination.IsValid() {
		return ErrInvalidTerminationKind
	}
	return nil
}
