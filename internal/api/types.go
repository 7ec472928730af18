package api

import "github.com/lysyi3m/rss-herald/internal/pipeline"

// StatusProvider exposes the pipeline snapshot served by the API.
type StatusProvider interface {
	Status() pipeline.Status
}

var _ StatusProvider = (*pipeline.Pipeline)(nil)

type Handler struct {
	pipeline StatusProvider
	version  string
}
