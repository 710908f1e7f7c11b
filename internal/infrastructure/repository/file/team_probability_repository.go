package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/matchdaylabs/qualprob/internal/domain/probability"
)

// TeamProbabilityRepository keeps the probability table in a single JSON
// document, for environments without a database. Upserts are keyed the same
// way as the postgres table.
type TeamProbabilityRepository struct {
	mu   sync.Mutex
	path string
}

func NewTeamProbabilityRepository(path string) *TeamProbabilityRepository {
	return &TeamProbabilityRepository{path: path}
}

func (r *TeamProbabilityRepository) Upsert(_ context.Context, rows []probability.TeamRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.load()
	if err != nil {
		return 0, 0, err
	}

	inserted, updated := 0, 0
	for _, row := range rows {
		key := fmt.Sprintf("%s|%s|%s", row.Team, row.Confederation, row.CurrentGroup)
		if _, exists := existing[key]; exists {
			updated++
		} else {
			inserted++
		}
		existing[key] = row
	}

	if err := r.save(existing); err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

func (r *TeamProbabilityRepository) All() ([]probability.TeamRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]probability.TeamRow, 0, len(existing))
	for _, row := range existing {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confederation != out[j].Confederation {
			return out[i].Confederation < out[j].Confederation
		}
		return out[i].Team < out[j].Team
	})
	return out, nil
}

func (r *TeamProbabilityRepository) load() (map[string]probability.TeamRow, error) {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return make(map[string]probability.TeamRow), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read probability store %s: %w", r.path, err)
	}

	out := make(map[string]probability.TeamRow)
	if len(raw) == 0 {
		return out, nil
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode probability store %s: %w", r.path, err)
	}
	return out, nil
}

func (r *TeamProbabilityRepository) save(rows map[string]probability.TeamRow) error {
	raw, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode probability store: %w", err)
	}
	return writeFileAtomic(r.path, raw)
}

// writeFileAtomic writes via a temp file and rename so readers never observe
// a half-written document.
func writeFileAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace store file %s: %w", path, err)
	}
	return nil
}
