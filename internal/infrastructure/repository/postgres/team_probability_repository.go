package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/matchdaylabs/qualprob/internal/domain/probability"
)

type TeamProbabilityRepository struct {
	db *sqlx.DB
}

func NewTeamProbabilityRepository(db *sqlx.DB) *TeamProbabilityRepository {
	return &TeamProbabilityRepository{db: db}
}

const upsertTeamProbabilityQuery = `
INSERT INTO team_slot_probabilities (
	team, confederation, qualification_status, prob_fill_slot, current_group,
	position, points, played, goal_diff, form, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
ON CONFLICT (team, confederation, current_group) DO UPDATE SET
	qualification_status = EXCLUDED.qualification_status,
	prob_fill_slot = EXCLUDED.prob_fill_slot,
	position = EXCLUDED.position,
	points = EXCLUDED.points,
	played = EXCLUDED.played,
	goal_diff = EXCLUDED.goal_diff,
	form = EXCLUDED.form,
	updated_at = NOW()
RETURNING (xmax = 0) AS inserted`

// Upsert applies the batch in one transaction. The xmax trick distinguishes
// fresh inserts from updated rows without a second query.
func (r *TeamProbabilityRepository) Upsert(ctx context.Context, rows []probability.TeamRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx upsert team probabilities: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	inserted, updated := 0, 0
	for _, row := range rows {
		var wasInserted bool
		err := tx.QueryRowxContext(ctx, upsertTeamProbabilityQuery,
			row.Team,
			row.Confederation,
			row.Status,
			row.ProbFillSlot,
			row.CurrentGroup,
			row.Position,
			row.Points,
			row.Played,
			row.GoalDiff,
			row.Form,
		).Scan(&wasInserted)
		if err != nil {
			return 0, 0, fmt.Errorf("upsert team probability team=%s group=%s: %w", row.Team, row.CurrentGroup, err)
		}
		if wasInserted {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit upsert team probabilities tx: %w", err)
	}
	return inserted, updated, nil
}
