package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/matchdaylabs/qualprob/internal/domain/prior"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
)

func TestFetchSeasonsMapsQualification(t *testing.T) {
	t.Parallel()

	factory := func(confederation standings.Confederation, season int) (StandingsSource, error) {
		if confederation != standings.UEFA {
			return &stubSource{confederation: confederation, err: errors.New("no data")}, nil
		}
		group := standings.Group{
			Confederation: confederation,
			GroupName:     "Group A",
			Stage:         "Group Stage",
			Entries: []standings.Entry{
				{Rank: 1, TeamName: "Spain", Points: 20, GamesPlayed: 8, Note: "Qualifies for World Cup"},
				{Rank: 2, TeamName: "Sweden", Points: 14, GamesPlayed: 8},
			},
		}
		return &stubSource{confederation: confederation, groups: []standings.Group{group}}, nil
	}

	service := NewHistoryService(factory, 2, logging.NewNop())
	rows, err := service.FetchSeasons(context.Background(), []int{2022})
	if err != nil {
		t.Fatalf("FetchSeasons() = %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !rows[0].Qualified || rows[0].TeamName != "Spain" || rows[0].Season != 2022 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Qualified {
		t.Errorf("rows[1] = %+v, Sweden must not be qualified", rows[1])
	}
}

func TestFetchSeasonsRejectsBadInput(t *testing.T) {
	t.Parallel()

	factory := func(confederation standings.Confederation, _ int) (StandingsSource, error) {
		return &stubSource{confederation: confederation}, nil
	}
	service := NewHistoryService(factory, 1, logging.NewNop())

	if _, err := service.FetchSeasons(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("FetchSeasons(nil) = %v, want ErrInvalidInput", err)
	}
	if _, err := service.FetchSeasons(context.Background(), []int{-3}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("FetchSeasons(-3) = %v, want ErrInvalidInput", err)
	}
}

func TestFetchSeasonsFailsWhenNothingCollected(t *testing.T) {
	t.Parallel()

	factory := func(confederation standings.Confederation, _ int) (StandingsSource, error) {
		return &stubSource{confederation: confederation, err: errors.New("gone")}, nil
	}
	service := NewHistoryService(factory, 2, logging.NewNop())

	if _, err := service.FetchSeasons(context.Background(), []int{2018}); !errors.Is(err, ErrNoStandings) {
		t.Errorf("FetchSeasons() = %v, want ErrNoStandings", err)
	}
}

func TestComputeLookupRates(t *testing.T) {
	t.Parallel()

	rows := []HistoricalRow{
		// Rank 1 in this stage qualified 2 out of 2 times.
		{Confederation: standings.UEFA, Stage: "Group Stage", Rank: 1, Points: 20, GamesPlayed: 8, Qualified: true},
		{Confederation: standings.UEFA, Stage: "Group Stage", Rank: 1, Points: 18, GamesPlayed: 8, Qualified: true},
		// Rank 2 qualified 1 out of 2 times.
		{Confederation: standings.UEFA, Stage: "Group Stage", Rank: 2, Points: 16, GamesPlayed: 8, Qualified: true},
		{Confederation: standings.UEFA, Stage: "Group Stage", Rank: 2, Points: 13, GamesPlayed: 8, Qualified: false},
	}

	lookup := ComputeLookup(rows)

	var rank1, rank2 *prior.Row
	bucketRows := 0
	for i := range lookup {
		row := lookup[i]
		switch row.LookupLevel {
		case prior.LevelRank:
			if row.Rank == nil {
				t.Fatalf("rank-level row without rank: %+v", row)
			}
			if row.PPGBucket != "all" {
				t.Errorf("rank-level PPGBucket = %q, want all", row.PPGBucket)
			}
			switch *row.Rank {
			case 1:
				rank1 = &lookup[i]
			case 2:
				rank2 = &lookup[i]
			}
		case prior.LevelBucket:
			if row.Rank != nil {
				t.Errorf("bucket-level row carries a rank: %+v", row)
			}
			bucketRows++
		}
	}

	if rank1 == nil || rank1.Prob != 1.0 {
		t.Errorf("rank 1 row = %+v, want rate 1.0", rank1)
	}
	if rank2 == nil || rank2.Prob != 0.5 {
		t.Errorf("rank 2 row = %+v, want rate 0.5", rank2)
	}
	if bucketRows == 0 {
		t.Error("no bucket-level rows generated")
	}

	// The generated table must round-trip through the index with rank rows
	// taking precedence.
	idx := prior.NewIndex(lookup)
	if prob, ok := idx.Lookup(standings.UEFA, "Group Stage", 1, 20, 8); !ok || prob != 1.0 {
		t.Errorf("Lookup(rank 1) = %v/%v, want 1.0/true", prob, ok)
	}
	if prob, ok := idx.Lookup(standings.UEFA, "Group Stage", 2, 16, 8); !ok || prob != 0.5 {
		t.Errorf("Lookup(rank 2) = %v/%v, want 0.5/true", prob, ok)
	}
}
