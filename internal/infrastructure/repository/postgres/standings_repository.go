package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

// StandingsRepository snapshots the raw normalized tables so a run's inputs
// can be inspected after the fact.
type StandingsRepository struct {
	db *sqlx.DB
}

func NewStandingsRepository(db *sqlx.DB) *StandingsRepository {
	return &StandingsRepository{db: db}
}

const upsertStandingQuery = `
INSERT INTO confed_standings (
	confederation, stage, group_name, team_rank, team_id, team_code, team_name,
	games_played, wins, draws, losses, goals_for, goals_against, goal_difference,
	points, record_summary, note, source_url, fetched_at, checksum
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
ON CONFLICT (confederation, group_name, team_name) DO UPDATE SET
	stage = EXCLUDED.stage,
	team_rank = EXCLUDED.team_rank,
	team_id = EXCLUDED.team_id,
	team_code = EXCLUDED.team_code,
	games_played = EXCLUDED.games_played,
	wins = EXCLUDED.wins,
	draws = EXCLUDED.draws,
	losses = EXCLUDED.losses,
	goals_for = EXCLUDED.goals_for,
	goals_against = EXCLUDED.goals_against,
	goal_difference = EXCLUDED.goal_difference,
	points = EXCLUDED.points,
	record_summary = EXCLUDED.record_summary,
	note = EXCLUDED.note,
	source_url = EXCLUDED.source_url,
	fetched_at = EXCLUDED.fetched_at,
	checksum = EXCLUDED.checksum`

func (r *StandingsRepository) UpsertGroups(ctx context.Context, groups []standings.Group) error {
	if len(groups) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert standings snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, group := range groups {
		for _, entry := range group.Entries {
			if _, err := tx.ExecContext(ctx, upsertStandingQuery,
				group.Confederation,
				group.Stage,
				group.GroupName,
				entry.Rank,
				entry.TeamID,
				entry.TeamCode,
				entry.TeamName,
				entry.GamesPlayed,
				entry.Wins,
				entry.Draws,
				entry.Losses,
				entry.GoalsFor,
				entry.GoalsAgainst,
				entry.GoalDifference,
				entry.Points,
				entry.RecordSummary,
				entry.Note,
				group.SourceURL,
				group.FetchedAt,
				group.Checksum,
			); err != nil {
				return fmt.Errorf("upsert standing confederation=%s group=%s team=%s: %w",
					group.Confederation, group.GroupName, entry.TeamName, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert standings snapshot tx: %w", err)
	}
	return nil
}
