package domain

type Product struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type Flag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type RecommendationsRequest struct {
	ProductIds []string `json:"productIds"`
}

type RecommendationsResponse struct {
	ProductIds []string `json:"productIds"`
}
