package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/matchdaylabs/qualprob/internal/domain/prior"
	"github.com/matchdaylabs/qualprob/internal/domain/probability"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
)

// SourceFactory builds a standings source pinned to one confederation and
// season, used to backfill past qualifying campaigns.
type SourceFactory func(confederation standings.Confederation, season int) (StandingsSource, error)

// HistoricalRow is one team's final position in a past qualifying campaign.
type HistoricalRow struct {
	Confederation standings.Confederation
	Season        int
	Stage         string
	GroupName     string
	TeamName      string
	Rank          int
	Points        int
	GamesPlayed   int
	Qualified     bool
}

// HistoryService backfills past seasons and derives the historical lookup
// table the estimator blends against.
type HistoryService struct {
	factory        SourceFactory
	confederations []standings.Confederation
	maxWorkers     int
	logger         *logging.Logger
	estimator      *Estimator
}

func NewHistoryService(factory SourceFactory, maxWorkers int, logger *logging.Logger) *HistoryService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &HistoryService{
		factory:        factory,
		confederations: standings.All(),
		maxWorkers:     maxWorkers,
		logger:         logger,
		estimator:      NewEstimator(DefaultEstimatorConfig(), nil),
	}
}

// FetchSeasons downloads final standings for the given seasons across all
// confederations. Individual confederation failures are logged and skipped;
// an error is returned only when nothing at all was collected.
func (s *HistoryService) FetchSeasons(ctx context.Context, seasons []int) ([]HistoricalRow, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HistoryService.FetchSeasons")
	defer span.End()

	if s.factory == nil {
		return nil, fmt.Errorf("%w: history service has no source factory", ErrDependencyUnavailable)
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("%w: at least one season is required", ErrInvalidInput)
	}

	out := make([]HistoricalRow, 0, 256)
	for _, season := range seasons {
		if season <= 0 {
			return nil, fmt.Errorf("%w: season must be a year, got %d", ErrInvalidInput, season)
		}

		sources := make([]StandingsSource, 0, len(s.confederations))
		for _, confederation := range s.confederations {
			source, err := s.factory(confederation, season)
			if err != nil {
				return nil, fmt.Errorf("build source confederation=%s season=%d: %w", confederation, season, err)
			}
			sources = append(sources, source)
		}

		collected, err := NewCollectorService(sources, s.maxWorkers, s.logger).Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect season=%d: %w", season, err)
		}
		for confederation, collectErr := range collected.Errors {
			s.logger.WarnContext(ctx, "historical season fetch failed for confederation",
				"season", season,
				"confederation", confederation,
				"error", collectErr,
			)
		}

		for _, item := range Flatten(collected) {
			out = append(out, HistoricalRow{
				Confederation: item.Confederation,
				Season:        season,
				Stage:         item.Stage,
				GroupName:     item.GroupName,
				TeamName:      item.Entry.TeamName,
				Rank:          item.Entry.Rank,
				Points:        item.Entry.Points,
				GamesPlayed:   item.Entry.GamesPlayed,
				Qualified:     s.estimator.Status(item.Entry.Note) == probability.StatusQualified,
			})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no historical standings collected", ErrNoStandings)
	}
	return out, nil
}

type rankAggKey struct {
	confederation standings.Confederation
	stage         string
	rank          int
}

type bucketAggKey struct {
	confederation standings.Confederation
	stage         string
	rankBucket    string
	ppgBucket     string
}

type aggregate struct {
	total     int
	qualified int
}

func (a aggregate) rate() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.qualified) / float64(a.total)
}

// ComputeLookup reduces historical rows into the two-level lookup table:
// a rank-level rate per (confederation, stage, rank) and a coarser rate per
// (confederation, stage, rank bucket, PPG bucket).
func ComputeLookup(rows []HistoricalRow) []prior.Row {
	rankAgg := make(map[rankAggKey]*aggregate, len(rows))
	bucketAgg := make(map[bucketAggKey]*aggregate, len(rows))

	for _, row := range rows {
		rk := rankAggKey{row.Confederation, row.Stage, row.Rank}
		if rankAgg[rk] == nil {
			rankAgg[rk] = &aggregate{}
		}
		rankAgg[rk].total++

		bk := bucketAggKey{
			confederation: row.Confederation,
			stage:         row.Stage,
			rankBucket:    prior.RankBucket(row.Rank),
			ppgBucket:     prior.PPGBucket(row.Points, row.GamesPlayed),
		}
		if bucketAgg[bk] == nil {
			bucketAgg[bk] = &aggregate{}
		}
		bucketAgg[bk].total++

		if row.Qualified {
			rankAgg[rk].qualified++
			bucketAgg[bk].qualified++
		}
	}

	out := make([]prior.Row, 0, len(rankAgg)+len(bucketAgg))
	for key, agg := range rankAgg {
		rank := key.rank
		out = append(out, prior.Row{
			Confederation: key.confederation,
			Stage:         key.stage,
			Rank:          &rank,
			RankBucket:    prior.RankBucket(key.rank),
			PPGBucket:     "all",
			LookupLevel:   prior.LevelRank,
			Prob:          agg.rate(),
		})
	}
	for key, agg := range bucketAgg {
		out = append(out, prior.Row{
			Confederation: key.confederation,
			Stage:         key.stage,
			RankBucket:    key.rankBucket,
			PPGBucket:     key.ppgBucket,
			LookupLevel:   prior.LevelBucket,
			Prob:          agg.rate(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Confederation != b.Confederation {
			return a.Confederation < b.Confederation
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		if a.LookupLevel != b.LookupLevel {
			return a.LookupLevel > b.LookupLevel // rank rows before bucket rows
		}
		if a.Rank != nil && b.Rank != nil && *a.Rank != *b.Rank {
			return *a.Rank < *b.Rank
		}
		if a.RankBucket != b.RankBucket {
			return a.RankBucket < b.RankBucket
		}
		return a.PPGBucket < b.PPGBucket
	})

	return out
}
