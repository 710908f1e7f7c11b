package memory

import (
	"context"
	"testing"

	"github.com/matchdaylabs/qualprob/internal/domain/probability"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

func TestUpsertCountsInsertsAndUpdates(t *testing.T) {
	t.Parallel()

	repo := NewTeamProbabilityRepository()
	rows := []probability.TeamRow{
		{Team: "Spain", Confederation: standings.UEFA, CurrentGroup: "Group A", ProbFillSlot: 95},
		{Team: "Japan", Confederation: standings.AFC, CurrentGroup: "Group B", ProbFillSlot: 90},
	}

	inserted, updated, err := repo.Upsert(context.Background(), rows)
	if err != nil {
		t.Fatalf("Upsert() = %v", err)
	}
	if inserted != 2 || updated != 0 {
		t.Errorf("first pass = %d/%d, want 2/0", inserted, updated)
	}

	rows[0].ProbFillSlot = 89
	inserted, updated, err = repo.Upsert(context.Background(), rows[:1])
	if err != nil {
		t.Fatalf("Upsert() = %v", err)
	}
	if inserted != 0 || updated != 1 {
		t.Errorf("second pass = %d/%d, want 0/1", inserted, updated)
	}

	if got := len(repo.All()); got != 2 {
		t.Errorf("stored rows = %d, want 2", got)
	}
}
