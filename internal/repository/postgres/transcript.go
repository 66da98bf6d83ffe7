package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Muffins-Corp/muffinscorp-go/internal/domain"
	"github.com/Muffins-Corp/muffinscorp-go/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    id            UUID PRIMARY KEY,
    request_id    TEXT,
    model         TEXT NOT NULL,
    prompt        TEXT NOT NULL,
    response      TEXT NOT NULL DEFAULT '',
    events        INTEGER NOT NULL DEFAULT 0,
    decode_errors INTEGER NOT NULL DEFAULT 0,
    termination   TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS transcripts_created_at_idx ON transcripts (created_at DESC);
`

const defaultListLimit = 20

type TranscriptRepo struct {
	db *DB
}

func NewTranscriptRepo(db *DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

// EnsureSchema creates the transcripts table when it is missing.
func (r *TranscriptRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure transcript schema: %w", err)
	}
	return nil
}

func (r *TranscriptRepo) Create(ctx context.Context, t *domain.Transcript) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query := `
        INSERT INTO transcripts (id, request_id, model, prompt, response, events, decode_errors, termination, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		t.ID,
		nullString(t.RequestID),
		t.Model,
		t.Prompt,
		t.Response,
		t.Events,
		t.DecodeErrors,
		string(t.Termination),
		t.CreatedAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		if isDuplicateError(err) {
			return domain.ErrDuplicateTranscript
		}
		return fmt.Errorf("create transcript: %w", err)
	}

	return nil
}

func (r *TranscriptRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transcript, error) {
	query := `
        SELECT id, request_id, model, prompt, response, events, decode_errors, termination, created_at
        FROM transcripts
        WHERE id = $1
    `

	t, err := scanTranscript(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("get transcript by id: %w", err)
	}
	return t, nil
}

func (r *TranscriptRepo) ListRecent(ctx context.Context, limit int) ([]domain.Transcript, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
        SELECT id, request_id, model, prompt, response, events, decode_errors, termination, created_at
        FROM transcripts
        ORDER BY created_at DESC
        LIMIT $1
    `

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []domain.Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		transcripts = append(transcripts, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return transcripts, nil
}

func scanTranscript(row pgx.Row) (*domain.Transcript, error) {
	var (
		t           domain.Transcript
		requestID   *string
		termination string
	)
	err := row.Scan(
		&t.ID,
		&requestID,
		&t.Model,
		&t.Prompt,
		&t.Response,
		&t.Events,
		&t.DecodeErrors,
		&termination,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if requestID != nil {
		t.RequestID = *requestID
	}
	t.Termination = domain.TerminationKind(termination)
	return &t, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateError checks if the error is a PostgreSQL unique constraint violation
func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ repository.TranscriptRepository = (*TranscriptRepo)(nil)
