package file

import (
	"context"
	"fmt"
	"os"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

// StandingsRepository snapshots normalized tables into one JSON document,
// keyed like the confed_standings table.
type StandingsRepository struct {
	mu   sync.Mutex
	path string
}

func NewStandingsRepository(path string) *StandingsRepository {
	return &StandingsRepository{path: path}
}

type standingRecord struct {
	Confederation  standings.Confederation `json:"confederation"`
	Stage          string                  `json:"stage"`
	GroupName      string                  `json:"group_name"`
	Rank           int                     `json:"team_rank"`
	TeamID         string                  `json:"team_id"`
	TeamCode       string                  `json:"team_code"`
	TeamName       string                  `json:"team_name"`
	GamesPlayed    int                     `json:"games_played"`
	Wins           int                     `json:"wins"`
	Draws          int                     `json:"draws"`
	Losses         int                     `json:"losses"`
	GoalsFor       int                     `json:"goals_for"`
	GoalsAgainst   int                     `json:"goals_against"`
	GoalDifference int                     `json:"goal_difference"`
	Points         int                     `json:"points"`
	RecordSummary  string                  `json:"record_summary"`
	Note           string                  `json:"note"`
	SourceURL      string                  `json:"source_url"`
	FetchedAt      string                  `json:"fetched_at"`
	Checksum       string                  `json:"checksum"`
}

func (r *StandingsRepository) UpsertGroups(_ context.Context, groups []standings.Group) error {
	if len(groups) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := make(map[string]standingRecord)
	raw, err := os.ReadFile(r.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read standings store %s: %w", r.path, err)
	}
	if len(raw) > 0 {
		if err := sonic.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode standings store %s: %w", r.path, err)
		}
	}

	for _, group := range groups {
		for _, entry := range group.Entries {
			key := fmt.Sprintf("%s|%s|%s", group.Confederation, group.GroupName, entry.TeamName)
			existing[key] = standingRecord{
				Confederation:  group.Confederation,
				Stage:          group.Stage,
				GroupName:      group.GroupName,
				Rank:           entry.Rank,
				TeamID:         entry.TeamID,
				TeamCode:       entry.TeamCode,
				TeamName:       entry.TeamName,
				GamesPlayed:    entry.GamesPlayed,
				Wins:           entry.Wins,
				Draws:          entry.Draws,
				Losses:         entry.Losses,
				GoalsFor:       entry.GoalsFor,
				GoalsAgainst:   entry.GoalsAgainst,
				GoalDifference: entry.GoalDifference,
				Points:         entry.Points,
				RecordSummary:  entry.RecordSummary,
				Note:           entry.Note,
				SourceURL:      group.SourceURL,
				FetchedAt:      group.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
				Checksum:       group.Checksum,
			}
		}
	}

	out, err := sonic.ConfigStd.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("encode standings store: %w", err)
	}
	return writeFileAtomic(r.path, out)
}
