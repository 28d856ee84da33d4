package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
)

type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (r *PostgresCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products = make([]domain.Product, 0)
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: %w: failed to list products. %s", domain.ErrUnavailable, domain.ErrInternalDb, err.Error())
	}
	defer rows.Close()
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.Id, &product.Name); err != nil {
			return nil, fmt.Errorf("%w: %w: failed to convert row into go type. %s", domain.ErrUnavailable, domain.ErrInternalDb, err.Error())
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w: error while iterating over rows. %s", domain.ErrUnavailable, domain.ErrInternalDb, err.Error())
	}
	return products, nil
}
