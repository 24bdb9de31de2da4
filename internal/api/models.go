package api

import "github.com/practable/hitcounter/internal/counter"

// Version is reported by the service info endpoint
const Version = "1.0.0"

// Health is the body returned by GET /health
type Health struct {
	Status string `json:"status"`
}

// Info is the body returned by GET /
type Info struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Error is the body returned with every 4xx response
type Error struct {
	Error string `json:"error"`
}

// Counter is the body returned by the single-counter endpoints, and
// each element of the list returned by GET /counters
type Counter = counter.Counter
