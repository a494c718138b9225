package ratings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	studyshelf "github.com/tmuthoni/studyshelf"
)

// Aggregator exposes per-material rating statistics and the detailed rating
// list. Statistics are supplementary information: a failed load is logged and
// replaced with zero values so the detail view can still render. The detailed
// list is loaded only on explicit request and its failures are surfaced so the
// caller can offer a retry.
type Aggregator struct {
	catalog studyshelf.CatalogService
}

func NewAggregator(catalog studyshelf.CatalogService) Aggregator {
	return Aggregator{catalog}
}

func (a Aggregator) LoadStatistics(ctx context.Context, materialID string) studyshelf.RatingStatistics {
	stats, err := a.catalog.GetRatingStatistics(ctx, materialID)
	if err != nil {
		log.Warn().Err(err).Str("material", materialID).Msg("rating statistics unavailable")
		return studyshelf.RatingStatistics{}
	}

	return stats
}

func (a Aggregator) LoadList(ctx context.Context, materialID string) ([]studyshelf.Rating, error) {
	ratings, err := a.catalog.ListRatings(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings for %s: %w", materialID, err)
	}

	return ratings, nil
}

func (a Aggregator) Submit(ctx context.Context, input studyshelf.RatingInput) (studyshelf.Rating, error) {
	if err := input.Valid(); err != nil {
		return studyshelf.Rating{}, err
	}

	rating, err := a.catalog.CreateRating(ctx, input)
	if err != nil {
		return studyshelf.Rating{}, fmt.Errorf("failed to submit rating: %w", err)
	}

	return rating, nil
}
