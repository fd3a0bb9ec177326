package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/metrics"
	"github.com/quietwire/dmcore/internal/search/service"
)

// searchUseCaseWithMetrics decorates SearchUseCase with metrics instrumentation.
type searchUseCaseWithMetrics struct {
	next    SearchUseCase
	metrics metrics.BusinessMetrics
}

// NewSearchUseCaseWithMetrics wraps a SearchUseCase with metrics recording.
func NewSearchUseCaseWithMetrics(useCase SearchUseCase, m metrics.BusinessMetrics) SearchUseCase {
	return &searchUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Rebuild records metrics for index rebuild operations.
func (s *searchUseCaseWithMetrics) Rebuild(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	err := s.next.Rebuild(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "search", "index_rebuild", status)
	s.metrics.RecordDuration(ctx, "search", "index_rebuild", time.Since(start), status)

	return err
}

// Search records metrics for query operations.
func (s *searchUseCaseWithMetrics) Search(
	ctx context.Context,
	userID uuid.UUID,
	query string,
	conversationID *uuid.UUID,
) ([]service.Hit, error) {
	start := time.Now()
	hits, err := s.next.Search(ctx, userID, query, conversationID)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "search", "search", status)
	s.metrics.RecordDuration(ctx, "search", "search", time.Since(start), status)

	return hits, err
}
