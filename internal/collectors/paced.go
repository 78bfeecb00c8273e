package collectors

import (
	"net/http"

	"golang.org/x/time/rate"
)

type pacedDoer struct {
	next    HTTPDoer
	limiter *rate.Limiter
}

// NewPacedDoer spaces requests from one fetch that fans out to several HTTP
// calls (pagination, per-game lookups). Waits honour the request context.
func NewPacedDoer(next HTTPDoer, perSecond float64, burst int) HTTPDoer {
	if perSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &pacedDoer{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (p *pacedDoer) Do(req *http.Request) (*http.Response, error) {
	if err := p.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return p.next.Do(req)
}
