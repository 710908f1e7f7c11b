package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

type snapshotRow struct {
	group standings.Group
	entry standings.Entry
}

type StandingsRepository struct {
	mu   sync.Mutex
	rows map[string]snapshotRow
}

func NewStandingsRepository() *StandingsRepository {
	return &StandingsRepository{rows: make(map[string]snapshotRow)}
}

func (r *StandingsRepository) UpsertGroups(_ context.Context, groups []standings.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, group := range groups {
		for _, entry := range group.Entries {
			key := fmt.Sprintf("%s|%s|%s", group.Confederation, group.GroupName, entry.TeamName)
			r.rows[key] = snapshotRow{group: group, entry: entry}
		}
	}
	return nil
}

func (r *StandingsRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
