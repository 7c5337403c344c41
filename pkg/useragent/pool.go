package useragent

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"sync/atomic"
)

// AcceptLanguage is sent alongside every browser User-Agent. Social platforms
// localise their "not found" pages, and the soft-404 signatures are English.
const AcceptLanguage = "en-US,en;q=0.9"

// Accept mirrors what a desktop browser sends for a top-level navigation.
const Accept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

// DefaultPool provides desktop browser User-Agents. The first entry is the
// one used when rotation is not wanted.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Pool hands out User-Agents either round-robin or at random.
// It is safe for concurrent use.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a pool from uas, falling back to DefaultPool when empty.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{uas: copied}
}

// Next returns the next User-Agent in round-robin order.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a User-Agent picked with crypto/rand.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.Next()
	}
	return p.uas[n.Int64()]
}

// BrowserHeaders builds the header set a desktop browser would send with ua.
func BrowserHeaders(ua string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", Accept)
	h.Set("Accept-Language", AcceptLanguage)
	return h
}
