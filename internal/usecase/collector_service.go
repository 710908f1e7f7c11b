package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/panics"

	"github.com/matchdaylabs/qualprob/internal/domain/standings"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
)

// StandingsSource fetches one confederation's qualifying tables.
type StandingsSource interface {
	Confederation() standings.Confederation
	SourceURL() string
	FetchStandings(ctx context.Context) ([]standings.Group, error)
}

// CollectorService fans out across standings sources. Sources run
// concurrently and fail independently: one broken confederation never blocks
// the rest.
type CollectorService struct {
	sources    []StandingsSource
	maxWorkers int
	logger     *logging.Logger
}

func NewCollectorService(sources []StandingsSource, maxWorkers int, logger *logging.Logger) *CollectorService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &CollectorService{
		sources:    sources,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// CollectResult holds whatever each source produced. A confederation appears
// in Groups or in Errors, never both.
type CollectResult struct {
	Groups     map[standings.Confederation][]standings.Group
	Errors     map[standings.Confederation]error
	SourceURLs []string
}

// GroupCount reports how many tables were collected per confederation.
func (r CollectResult) GroupCount() map[string]int {
	out := make(map[string]int, len(r.Groups))
	for confederation, groups := range r.Groups {
		out[string(confederation)] = len(groups)
	}
	return out
}

func (s *CollectorService) Collect(ctx context.Context) (CollectResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.Collect")
	defer span.End()

	result := CollectResult{
		Groups:     make(map[standings.Confederation][]standings.Group, len(s.sources)),
		Errors:     make(map[standings.Confederation]error, len(s.sources)),
		SourceURLs: make([]string, 0, len(s.sources)),
	}
	if len(s.sources) == 0 {
		return result, nil
	}

	workerCount := s.maxWorkers
	if workerCount > len(s.sources) {
		workerCount = len(s.sources)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return CollectResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	type sourceOutcome struct {
		confederation standings.Confederation
		sourceURL     string
		groups        []standings.Group
		err           error
	}

	outcomes := make(chan sourceOutcome, len(s.sources))

	var workers sync.WaitGroup
	for _, source := range s.sources {
		source := source
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			outcome := sourceOutcome{
				confederation: source.Confederation(),
				sourceURL:     source.SourceURL(),
			}

			// A panicking parser must not take the whole run down; convert it
			// into that confederation's error.
			recovered := panics.Try(func() {
				outcome.groups, outcome.err = source.FetchStandings(ctx)
			})
			if recovered != nil {
				outcome.groups = nil
				outcome.err = fmt.Errorf("standings source panicked: %v", recovered.Value)
			}

			outcomes <- outcome
		}); err != nil {
			workers.Done()
			return CollectResult{}, fmt.Errorf("submit source to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(outcomes)

	for outcome := range outcomes {
		result.SourceURLs = append(result.SourceURLs, outcome.sourceURL)
		if outcome.err != nil {
			s.logger.WarnContext(ctx, "standings collection failed for confederation",
				"confederation", outcome.confederation,
				"error", outcome.err,
			)
			result.Errors[outcome.confederation] = outcome.err
			continue
		}
		result.Groups[outcome.confederation] = outcome.groups
		s.logger.InfoContext(ctx, "standings collected",
			"confederation", outcome.confederation,
			"groups", len(outcome.groups),
		)
	}

	sort.Strings(result.SourceURLs)
	return result, nil
}

// CollectedEntry is one team's table position with its group context, the
// unit the estimator consumes.
type CollectedEntry struct {
	Confederation standings.Confederation
	Stage         string
	GroupName     string
	Entry         standings.Entry
}

// Flatten turns collected groups into a deterministic row stream, ordered by
// confederation, group, rank, then team name.
func Flatten(result CollectResult) []CollectedEntry {
	out := make([]CollectedEntry, 0, 64)
	for confederation, groups := range result.Groups {
		for _, group := range groups {
			for _, entry := range group.Entries {
				out = append(out, CollectedEntry{
					Confederation: confederation,
					Stage:         group.Stage,
					GroupName:     group.GroupName,
					Entry:         entry,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confederation != out[j].Confederation {
			return out[i].Confederation < out[j].Confederation
		}
		if out[i].GroupName != out[j].GroupName {
			return out[i].GroupName < out[j].GroupName
		}
		if out[i].Entry.Rank != out[j].Entry.Rank {
			return out[i].Entry.Rank < out[j].Entry.Rank
		}
		return out[i].Entry.TeamName < out[j].Entry.TeamName
	})

	return out
}
