package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matchdaylabs/qualprob/internal/domain/probability"
	"github.com/matchdaylabs/qualprob/internal/domain/scraperjob"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

func TestFileUpsertIdempotentCounts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "probs.json")
	repo := NewTeamProbabilityRepository(path)

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
	inserted, updated, err = repo.Upsert(context.Background(), rows)
	if err != nil {
		t.Fatalf("Upsert() = %v", err)
	}
	if inserted != 0 || updated != 2 {
		t.Errorf("second pass = %d/%d, want 0/2", inserted, updated)
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("All() = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("stored rows = %d, want 2", len(all))
	}
	// AFC sorts before UEFA.
	if all[0].Team != "Japan" || all[1].Team != "Spain" {
		t.Errorf("order = %q, %q", all[0].Team, all[1].Team)
	}
	if all[1].ProbFillSlot != 89 {
		t.Errorf("updated row prob = %v, want 89", all[1].ProbFillSlot)
	}
}

func TestJobLogAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	repo := NewScraperJobRepository(path)

	id1, err := repo.Log(context.Background(), scraperjob.Job{RunID: "a", Status: scraperjob.StatusSuccess})
	if err != nil {
		t.Fatalf("Log() = %v", err)
	}
	id2, err := repo.Log(context.Background(), scraperjob.Job{RunID: "b", Status: scraperjob.StatusPartial})
	if err != nil {
		t.Fatalf("Log() = %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", id1, id2)
	}
}

func TestStandingsSnapshotUpserts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "standings.json")
	repo := NewStandingsRepository(path)

	group := standings.Group{
		Confederation: standings.UEFA,
		GroupName:     "Group A",
		Stage:         "Group Stage",
		Entries: []standings.Entry{
			{Rank: 1, TeamName: "Spain", Points: 20},
		},
		Checksum: "abc",
	}

	if err := repo.UpsertGroups(context.Background(), []standings.Group{group}); err != nil {
		t.Fatalf("UpsertGroups() = %v", err)
	}

	group.Entries[0].Points = 23
	if err := repo.UpsertGroups(context.Background(), []standings.Group{group}); err != nil {
		t.Fatalf("UpsertGroups() second pass = %v", err)
	}
}
