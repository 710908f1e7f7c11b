package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/matchdaylabs/qualprob/internal/domain/probability"
)

// TeamProbabilityRepository is an in-memory store with the same upsert
// semantics as the postgres one, used in tests and dry runs.
type TeamProbabilityRepository struct {
	mu   sync.Mutex
	rows map[string]probability.TeamRow
}

func NewTeamProbabilityRepository() *TeamProbabilityRepository {
	return &TeamProbabilityRepository{rows: make(map[string]probability.TeamRow)}
}

func (r *TeamProbabilityRepository) Upsert(_ context.Context, rows []probability.TeamRow) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted, updated := 0, 0
	for _, row := range rows {
		key := probabilityKey(row)
		if _, exists := r.rows[key]; exists {
			updated++
		} else {
			inserted++
		}
		r.rows[key] = row
	}
	return inserted, updated, nil
}

func (r *TeamProbabilityRepository) All() []probability.TeamRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]probability.TeamRow, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out
}

func probabilityKey(row probability.TeamRow) string {
	return fmt.Sprintf("%s|%s|%s", row.Team, row.Confederation, row.CurrentGroup)
}
