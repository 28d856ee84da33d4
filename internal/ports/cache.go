package ports

type RecommendationCache interface {
	IsPrimed() bool
	MarkPrimed()
	Grow(freshIds []string)
	Snapshot() []string
}
