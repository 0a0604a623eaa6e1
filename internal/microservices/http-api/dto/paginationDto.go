package dto

import (
	"net/url"
	"strconv"
)

// PageConfig bounds the limit a client may ask for.
type PageConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// PageParams is a parsed ?limit=&offset= pair.
type PageParams struct {
	Limit  int
	Offset int
}

// ParsePageParams reads limit/offset query values. Malformed or out-of-range
// values fall back to the defaults instead of failing the request.
func (c PageConfig) ParsePageParams(query url.Values) PageParams {
	p := PageParams{Limit: c.DefaultLimit}

	if raw := query.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if c.MaxLimit > 0 && p.Limit > c.MaxLimit {
		p.Limit = c.MaxLimit
	}

	if raw := query.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Offset = n
		}
	}
	return p
}

// Page is the limit/offset list envelope.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope; next/previous keep every other query parameter of u.
func NewPage[T any](results []T, count int64, p PageParams, u *url.URL) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}

	if int64(p.Offset+p.Limit) < count {
		next := pageURL(u, p.Limit, p.Offset+p.Limit)
		page.Next = &next
	}
	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		previous := pageURL(u, p.Limit, prev)
		page.Previous = &previous
	}
	return page
}

func pageURL(u *url.URL, limit, offset int) string {
	copied := *u
	q := copied.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	copied.RawQuery = q.Encode()
	return copied.RequestURI()
}
