package library

import (
	"context"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
)

type jobService struct {
	jobs libraryRepo.JobRepository
}

// NewJobService exposes job status. With a nil repository (inline mode)
// every lookup is a 404.
func NewJobService(jobs libraryRepo.JobRepository) librarySvc.JobService {
	return &jobService{jobs: jobs}
}

func (s *jobService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	if s.jobs == nil {
		return nil, &domain.NotFoundError{Message: "async ingestion is disabled"}
	}
	if err := validateID("job", id); err != nil {
		return nil, err
	}
	return s.jobs.Get(ctx, id)
}
