package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/matchdaylabs/qualprob/internal/domain/scraperjob"
)

// ScraperJobRepository appends job audit records as JSON lines.
type ScraperJobRepository struct {
	mu   sync.Mutex
	path string
	seq  int64
}

func NewScraperJobRepository(path string) *ScraperJobRepository {
	return &ScraperJobRepository{path: path}
}

func (r *ScraperJobRepository) Log(_ context.Context, job scraperjob.Job) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := sonic.ConfigStd.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("encode job record: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create job log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open job log %s: %w", r.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return 0, fmt.Errorf("append job record: %w", err)
	}

	r.seq++
	return r.seq, nil
}
