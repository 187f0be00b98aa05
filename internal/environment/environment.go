// Package environment abstracts the host page the metrics client and the
// relier run in: its origin, query string, referrer and unload hook.
package environment

import (
	"fmt"
	"net/url"
	"sync"
)

// Window is the part of a browser window the client reads from.
type Window interface {
	// Origin returns the scheme and host of the current page, such as
	// "https://accounts.example.com". It is empty for a relative page URL.
	Origin() string
	// Search returns the raw query string of the current page, without
	// the leading "?".
	Search() string
	Referrer() string
	// OnUnload registers f to run when the page unloads. The returned
	// func deregisters it.
	OnUnload(f func()) (remove func())
}

// Static is a Window backed by a fixed page URL. Unload runs the
// registered hooks synchronously.
type Static struct {
	mu       sync.Mutex
	origin   string
	search   string
	referrer string
	nextID   int
	hooks    map[int]func()
	order    []int
}

// NewStatic builds a Window for the given page URL.
func NewStatic(pageURL, referrer string) (*Static, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}
	var origin string
	if parsed.Scheme != "" && parsed.Host != "" {
		origin = parsed.Scheme + "://" + parsed.Host
	}
	return &Static{
		origin:   origin,
		search:   parsed.RawQuery,
		referrer: referrer,
		hooks:    make(map[int]func()),
	}, nil
}

func (s *Static) Origin() string {
	return s.origin
}

func (s *Static) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// SetSearch replaces the query string, as a navigation would.
func (s *Static) SetSearch(search string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = search
}

func (s *Static) Referrer() string {
	return s.referrer
}

func (s *Static) OnUnload(f func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.hooks[id] = f
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.hooks, id)
			for i, registered := range s.order {
				if registered == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Listeners reports how many unload hooks are registered.
func (s *Static) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks)
}

// Unload runs every registered hook in registration order.
func (s *Static) Unload() {
	s.mu.Lock()
	var pending []func()
	for _, id := range s.order {
		if hook, ok := s.hooks[id]; ok {
			pending = append(pending, hook)
		}
	}
	s.mu.Unlock()

	for _, hook := range pending {
		hook()
	}
}
