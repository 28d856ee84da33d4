package ports

import (
	"context"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
)

type Catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}
