package port

import (
	"context"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/entity"
	"github.com/google/uuid"
)

// JobRepository persists analysis job state.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}
