package catalog

import (
	"math/rand"
	"sync"
	"time"
)

// UserAgentProvider supplies the User-Agent string for each request. The
// upstream API answers plain library clients inconsistently, so production
// runs rotate through a browser pool; tests inject a fixed provider.
type UserAgentProvider interface {
	UserAgent() string
}

// StaticUserAgent always returns the same string.
type StaticUserAgent string

// UserAgent implements UserAgentProvider.
func (s StaticUserAgent) UserAgent() string {
	return string(s)
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:118.0) Gecko/20100101 Firefox/118.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:117.0) Gecko/20100101 Firefox/117.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36 Edg/117.0.2045.47",
}

// RandomUserAgent picks a fresh agent from a pool on every request.
type RandomUserAgent struct {
	mu   sync.Mutex
	pool []string
	rnd  *rand.Rand
}

// NewRandomUserAgent builds a rotating provider. An empty pool falls back to
// a bundled set of current browser strings.
func NewRandomUserAgent(pool []string) *RandomUserAgent {
	if len(pool) == 0 {
		pool = defaultUserAgents
	}
	return &RandomUserAgent{
		pool: pool,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// UserAgent implements UserAgentProvider.
func (p *RandomUserAgent) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool[p.rnd.Intn(len(p.pool))]
}
