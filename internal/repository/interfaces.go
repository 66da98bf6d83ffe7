package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Muffins-Corp/muffinscorp-go/internal/domain"
)

// TranscriptRepository stores completed chat exchanges.
type TranscriptRepository interface {
	Create(ctx context.Context, t *domain.Transcript) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transcript, error)
	// ListRecent returns the newest transcripts first.
	ListRecent(ctx context.Context, limit int) ([]domain.Transcript, error)
}
