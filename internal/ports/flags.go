package ports

import (
	"context"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
)

type FeatureFlags interface {
	GetFlag(ctx context.Context, name string) (*domain.Flag, error)
}

type FlagAdmin interface {
	SetFlag(ctx context.Context, flag domain.Flag) error
	DeleteFlag(ctx context.Context, name string) error
}
