package domain

import "errors"

var (
	ErrTranscriptNotFound  = errors.New("transcript not found")
	ErrDuplicateTranscript = errors.New("transcript already exists")
)

var (
	ErrEmptyPrompt            = errors.New("empty prompt")
	ErrInvalidTerminationKind = errors.New("invalid termination kind")
)
