package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// URLQueue holds the pages an audit still has to visit. A page is accepted
// once, whichever URL variant links to it, and the queue keeps count of how
// many pages each link depth contributed.
type URLQueue struct {
	mu      sync.Mutex
	pending []queuedPage
	seen    map[string]int
	depths  []int
}

type queuedPage struct {
	url   string
	depth int
}

// NewURLQueue creates an empty queue.
func NewURLQueue() *URLQueue {
	return &URLQueue{seen: make(map[string]int)}
}

// Add queues a page found at depth unless it was seen before. It reports
// whether the page was queued.
func (q *URLQueue) Add(rawURL string, depth int) bool {
	key := pageKey(rawURL)
	if key == "" || depth < 0 {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.seen[key]; ok {
		return false
	}
	q.seen[key] = depth
	for len(q.depths) <= depth {
		q.depths = append(q.depths, 0)
	}
	q.depths[depth]++
	q.pending = append(q.pending, queuedPage{url: key, depth: depth})
	return true
}

// Pop removes the oldest queued page.
func (q *URLQueue) Pop() (string, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return "", 0, false
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	return next.url, next.depth, true
}

// Len returns the number of pages waiting to be visited.
func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Seen returns the number of distinct pages ever queued.
func (q *URLQueue) Seen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}

// DepthCounts returns the number of pages queued at each depth, indexed by
// depth.
func (q *URLQueue) DepthCounts() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int(nil), q.depths...)
}

// pageKey returns the canonical form of a page URL, or "" for anything that
// is not an http(s) page. Static hosts serve /dir/, /dir and /dir/index.html
// as the same page, so all three share a key.
func pageKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if dir, ok := strings.CutSuffix(u.Path, "/index.html"); ok {
		u.Path = dir + "/"
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	u.RawPath = ""
	return u.String()
}

// IsSameHost reports whether two URLs are on the same host and port.
func IsSameHost(url1, url2 string) bool {
	a, err := url.Parse(url1)
	if err != nil {
		return false
	}
	b, err := url.Parse(url2)
	if err != nil {
		return false
	}
	return strings.EqualFold(a.Host, b.Host)
}
