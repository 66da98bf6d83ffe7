package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Muffins-Corp/muffinscorp-go/internal/domain"
)

type MockTranscriptRepository struct {
	mu          sync.RWMutex
	transcripts map[uuid.UUID]domain.Transcript

	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func NewMockTranscriptRepository() *MockTranscriptRepository {
	return &MockTranscriptRepository{
		transcripts: make(map[uuid.UUID]domain.Transcript),
	}
}

func (m *MockTranscriptRepository) Create(ctx context.Context, t *domain.Transcript) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transcripts[t.ID]; exists {
		return domain.ErrDuplicateTranscript
	}
	m.transcripts[t.ID] = *t
	return nil
}

func (m *MockTranscriptRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transcripts[id]
	if !ok {
		return nil, domain.ErrTranscriptNotFound
	}
	return &t, nil
}

func (m *MockTranscriptRepository) ListRecent(ctx context.Context, limit int) ([]domain.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.Transcript, 0, len(m.transcripts))
	for _, t := range m.transcripts {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockTranscriptRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transcripts)
}

var _ TranscriptRepository = (*MockTranscriptRepository)(nil)
