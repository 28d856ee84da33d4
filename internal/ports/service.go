package ports

import (
	"context"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
)

type RecommendationService interface {
	ListRecommendations(ctx context.Context, productIds []string) ([]string, *domain.ServiceError)
}
