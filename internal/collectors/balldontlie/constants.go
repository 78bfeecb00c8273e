package balldontlie

const (
	providerName    = "balldontlie"
	defaultBaseURL  = "https://api.balldontlie.io/v1"
	defaultPerPage  = 100
	defaultMaxPages = 5
	// Upstream free tier allows 5 req/min; pages of one fetch are spaced accordingly.
	defaultPagesPerSecond = 1.0
)
