package memory

import (
	"context"
	"sync"

	"github.com/matchdaylabs/qualprob/internal/domain/scraperjob"
)

type ScraperJobRepository struct {
	mu   sync.Mutex
	jobs []scraperjob.Job
}

func NewScraperJobRepository() *ScraperJobRepository {
	return &ScraperJobRepository{}
}

func (r *ScraperJobRepository) Log(_ context.Context, job scraperjob.Job) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = append(r.jobs, job)
	return int64(len(r.jobs)), nil
}

func (r *ScraperJobRepository) All() []scraperjob.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]scraperjob.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
