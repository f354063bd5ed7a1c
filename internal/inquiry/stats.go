package inquiry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bluecheck/inquiries/internal/models"
	"github.com/bluecheck/inquiries/internal/store"
)

// RecentWindow is the trailing window counted as recent.
const RecentWindow = 7 * 24 * time.Hour

// Stats aggregates inquiry counts. Each figure is an independent count, so
// concurrent writes may make them momentarily disagree.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	statuses := models.Statuses()
	types := models.InspectionTypes()
	since := s.clock.Now().UTC().Add(-RecentWindow)

	var (
		total, recent int64
		byStatus      = make([]int64, len(statuses))
		byType        = make([]int64, len(types))
	)

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, f store.CountFilter) {
		g.Go(func() error {
			n, err := s.store.CountInquiries(gctx, f)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&total, store.CountFilter{})
	count(&recent, store.CountFilter{CreatedSince: &since})
	for i := range statuses {
		count(&byStatus[i], store.CountFilter{Status: &statuses[i]})
	}
	for i := range types {
		count(&byType[i], store.CountFilter{InspectionType: &types[i]})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count inquiries: %w", err)
	}

	out := &models.Stats{
		TotalInquiries:          total,
		StatusBreakdown:         make(map[models.Status]int64, len(statuses)),
		InspectionTypeBreakdown: make(map[models.InspectionType]int64, len(types)),
		RecentInquiries7Days:    recent,
	}
	for i, st := range statuses {
		out.StatusBreakdown[st] = byStatus[i]
	}
	for i, t := range types {
		out.InspectionTypeBreakdown[t] = byType[i]
	}
	return out, nil
}
