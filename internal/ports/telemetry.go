package ports

type Recorder interface {
	AddRecommendations(count int, recommendationType string)
	CacheLookup(hit bool)
	CacheSize(size int)
}
