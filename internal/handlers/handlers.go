package handlers

import (
	"media-pipe/internal/ffmpeg"
	"media-pipe/internal/startup"
	"media-pipe/internal/store"
)

type Handlers struct {
	store   *store.Store
	builder *ffmpeg.Builder
	config  *startup.Config

	// jobs is a counting semaphore capping concurrent pipeline runs.
	jobs chan struct{}
}

func New(st *store.Store, config *startup.Config) *Handlers {
	return &Handlers{
		store:   st,
		builder: ffmpeg.NewBuilder(config.FFmpegPath, config.FFprobePath),
		config:  config,
		jobs:    make(chan struct{}, config.MaxConcurrentJobs),
	}
}

// acquireJob reserves a job slot without blocking; the caller must
// release on true.
func (h *Handlers) acquireJob() bool {
	select {
	case h.jobs <- struct{}{}:
		return true
	default:
		return false
	}
}

func (h *Handlers) releaseJob() {
	<-h.jobs
}
